// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

// Package reformat runs an external clang-format style formatter over the
// changed segments of a file and works out which parts of the input it
// would rewrite.
package reformat

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
)

// A DiffSegment is one hunk of a unified diff, described as inclusive
// 1-based line ranges in the original (A) and modified (B) file. A zero
// AEnd means the hunk only adds lines, so there is no original range; a
// zero BEnd means the hunk only removes lines.
type DiffSegment struct {
	AStart, AEnd int
	BStart, BEnd int
}

var (
	diffFileRE = regexp.MustCompile(`^\+\+\+ (?:.*?/)(\S*)`)
	diffHunkRE = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))?`)
)

// ParseDiffSegments reads a unified diff and returns the change segments
// per file. The map key is the filename from the "+++" header with its
// first path component stripped. Hunks seen before any filename header are
// ignored.
func ParseDiffSegments(r io.Reader) (map[string][]DiffSegment, error) {
	segments := make(map[string][]DiffSegment)
	var filename string

	lines := bufio.NewScanner(r)
	for lines.Scan() {
		line := lines.Text()
		if m := diffFileRE.FindStringSubmatch(line); m != nil {
			filename = m[1]
		}
		if filename == "" {
			continue
		}
		m := diffHunkRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		var seg DiffSegment
		seg.AStart, _ = strconv.Atoi(m[1])
		seg.AEnd = seg.AStart
		if m[2] != "" {
			// A line count of 0 means the hunk only adds lines and there is
			// no range in the original file.
			count, _ := strconv.Atoi(m[2])
			if count == 0 {
				seg.AEnd = 0
			} else {
				seg.AEnd += count - 1
			}
		}

		seg.BStart, _ = strconv.Atoi(m[3])
		seg.BEnd = seg.BStart
		if m[4] != "" {
			count, _ := strconv.Atoi(m[4])
			if count == 0 {
				seg.BEnd = 0
			} else {
				seg.BEnd += count - 1
			}
		}
		segments[filename] = append(segments[filename], seg)
	}
	return segments, lines.Err()
}
