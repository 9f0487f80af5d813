// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package reformat

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/lonemadmax/haiku-format-bot/gerrit"
)

// ComputePatchSegments diffs the base contents of f against its patched
// contents and records the changed line ranges as patch segments. A file
// added by the change gets a single segment covering all of it. Segments
// that only remove lines leave nothing to reformat and are not recorded.
func ComputePatchSegments(f *gerrit.File) error {
	if f.PatchContents == nil {
		return fmt.Errorf("%s: no patched contents to compare", f)
	}
	if f.BaseContents == nil {
		return f.AddPatchSegment(1, len(f.PatchContents))
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        f.BaseContents,
		B:        f.PatchContents,
		FromFile: "base/file",
		ToFile:   "patch/file",
		Context:  0,
	})
	if err != nil {
		return fmt.Errorf("%s: diffing base against patch: %w", f, err)
	}
	segments, err := ParseDiffSegments(strings.NewReader(diff))
	if err != nil {
		return fmt.Errorf("%s: parsing the base diff: %w", f, err)
	}
	for _, seg := range segments["file"] {
		if seg.BEnd == 0 {
			continue
		}
		if err := f.AddPatchSegment(seg.BStart, seg.BEnd); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}

// SplitFormatSegments diffs the patched contents of f against the output
// of the formatter and records each differing hunk as a format segment, so
// every suggestion can become its own review comment.
func SplitFormatSegments(f *gerrit.File) error {
	if f.FormattedContents == nil {
		return nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        f.PatchContents,
		B:        f.FormattedContents,
		FromFile: "patch/file",
		ToFile:   "formatted/file",
		Context:  0,
	})
	if err != nil {
		return fmt.Errorf("%s: diffing patch against formatted output: %w", f, err)
	}
	segments, err := ParseDiffSegments(strings.NewReader(diff))
	if err != nil {
		return fmt.Errorf("%s: parsing the format diff: %w", f, err)
	}
	for _, seg := range segments["file"] {
		var content []string
		if seg.BEnd != 0 {
			content = f.FormattedContents[seg.BStart-1 : seg.BEnd]
		}
		if err := f.AddFormatSegment(seg.AStart, seg.AEnd, content); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}
