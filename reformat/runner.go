// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package reformat

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/lonemadmax/haiku-format-bot/gerrit"
)

// DefaultCommand is the formatter binary used when none is configured. It
// is expected to behave like clang-format: read source text on stdin,
// honor repeated -lines options, and write the full reformatted text on
// stdout.
const DefaultCommand = "haiku-format"

// A Runner reformats source text by invoking an external clang-format
// style command.
type Runner struct {
	Command string // formatter binary, DefaultCommand if empty
}

// Run pipes contents through the formatter, restricting it to the given
// segments, and returns the full reformatted text as lines. Segments that
// are mere insertion points are skipped, as the formatter only accepts
// line ranges. With no usable segment the whole input is reformatted.
func (r Runner) Run(ctx context.Context, contents []string, segments []gerrit.Segment) ([]string, error) {
	command := r.Command
	if command == "" {
		command = DefaultCommand
	}
	var args []string
	for _, s := range segments {
		lines, err := s.FormatRange()
		if err != nil {
			continue
		}
		args = append(args, "-lines", lines)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = strings.NewReader(strings.Join(contents, ""))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("running %s: %w: %s", command, err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("running %s: %w", command, err)
	}
	return gerrit.SplitLines(stdout.String()), nil
}
