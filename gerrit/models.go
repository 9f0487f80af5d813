// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package gerrit

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ReformatType classifies what a FormatSegment does to the original text.
type ReformatType byte

// Constants defining the valid ReformatType values.
const (
	Insertion    ReformatType = iota // new content is inserted at the start line
	Modification                     // the line range is replaced by the new content
	Deletion                         // the line range is removed
)

var reformatStr = [...]string{
	Insertion:    "insertion",
	Modification: "modification",
	Deletion:     "deletion",
}

func (t ReformatType) String() string { return reformatStr[t] }

// A Segment is a range of lines in a text file. Line numbers are 1-based and
// the range is inclusive: a segment with start 3 and end 5 covers lines 3, 4
// and 5. An End of 0 means the segment is not a range but an insertion point
// at Start.
type Segment struct {
	Start int
	End   int
}

// NewSegment constructs a Segment after validating the range.
func NewSegment(start, end int) (Segment, error) {
	if start < 1 {
		return Segment{}, fmt.Errorf("segment start %d: must be 1 or higher", start)
	}
	if end != 0 && end < start {
		return Segment{}, fmt.Errorf("segment end %d before start %d", end, start)
	}
	return Segment{Start: start, End: end}, nil
}

// IsRange reports whether s covers a range of lines rather than marking an
// insertion point.
func (s Segment) IsRange() bool { return s.End != 0 }

// FormatRange renders the segment in the "start:end" form accepted by the
// -lines option of clang-format. Insertion points have no such form.
func (s Segment) FormatRange() (string, error) {
	if !s.IsRange() {
		return "", errors.New("segment does not have an endpoint and is not a range")
	}
	return fmt.Sprintf("%d:%d", s.Start, s.End), nil
}

func (s Segment) String() string {
	r, err := s.FormatRange()
	if err != nil {
		return fmt.Sprintf("segment %d (insert point)", s.Start)
	}
	return "segment " + r
}

// A FormatSegment is a segment of reformatted output. Content holds the
// replacement lines; the combination of range and content determines the
// ReformatType.
type FormatSegment struct {
	Segment
	Content []string
}

// NewFormatSegment constructs a FormatSegment after validating that the
// range and content describe one of the three reformat types.
func NewFormatSegment(start, end int, content []string) (FormatSegment, error) {
	s, err := NewSegment(start, end)
	if err != nil {
		return FormatSegment{}, err
	}
	if !s.IsRange() && len(content) == 0 {
		return FormatSegment{}, errors.New("insertion segment without content")
	}
	return FormatSegment{Segment: s, Content: content}, nil
}

// Type reports what applying the segment does to the original text.
func (f FormatSegment) Type() ReformatType {
	switch {
	case !f.IsRange():
		return Insertion
	case len(f.Content) == 0:
		return Deletion
	default:
		return Modification
	}
}

func (f FormatSegment) String() string {
	return fmt.Sprintf("%s (%s)", f.Segment, f.Type())
}

// A File is one file of a Gerrit change, including its contents. All content
// slices follow the readlines convention: each element is one line with its
// trailing newline preserved, except possibly the last.
type File struct {
	Filename          string
	BaseContents      []string // nil when the file is added by the change
	PatchContents     []string // nil when the file is deleted by the change
	FormattedContents []string // output of the reformatter, when it differs

	PatchSegments  []Segment       // parts of the patch that differ from the base
	FormatSegments []FormatSegment // parts of the patch the reformatter would change
}

// AddPatchSegment marks lines start through end of the patched content as
// modified relative to the base content.
func (f *File) AddPatchSegment(start, end int) error {
	s, err := NewSegment(start, end)
	if err != nil {
		return err
	}
	f.PatchSegments = append(f.PatchSegments, s)
	return nil
}

// AddFormatSegment records a part of the patched content that must change to
// comply with the style.
func (f *File) AddFormatSegment(start, end int, content []string) error {
	s, err := NewFormatSegment(start, end, content)
	if err != nil {
		return err
	}
	f.FormatSegments = append(f.FormatSegments, s)
	return nil
}

// SetFormattedContents stores the reformatter's output. Output identical to
// the patched content is discarded, so FormattedContents is only set when
// there is something to suggest.
func (f *File) SetFormattedContents(contents []string) {
	if slices.Equal(f.PatchContents, contents) {
		return
	}
	f.FormattedContents = contents
}

func (f *File) String() string { return "Gerrit file " + f.Filename }

// A Change is one Gerrit change, with the files of its current revision.
type Change struct {
	ID       string
	Revision string
	Files    []*File
}

func (c *Change) String() string { return "Gerrit change " + c.ID }

// SplitLines splits s into lines, each retaining its trailing newline. The
// final line is returned without one if s does not end in a newline. An
// empty input yields nil.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// CommentRange selects a span of the file a CommentInput applies to, in the
// form the Gerrit REST API expects. Lines are 1-based; characters are 0-based
// offsets within the line.
type CommentRange struct {
	StartLine      int `json:"start_line"`
	StartCharacter int `json:"start_character"`
	EndLine        int `json:"end_line"`
	EndCharacter   int `json:"end_character"`
}

// CommentInput is one draft comment of a review.
type CommentInput struct {
	Message        string              `json:"message,omitempty"`
	Range          *CommentRange       `json:"range,omitempty"`
	Line           int                 `json:"line,omitempty"`
	Unresolved     *bool               `json:"unresolved,omitempty"`
	FixSuggestions []FixSuggestionInfo `json:"fix_suggestions,omitempty"`
}

// FixReplacementInfo is one concrete text replacement of a fix suggestion.
type FixReplacementInfo struct {
	Path        string       `json:"path"`
	Range       CommentRange `json:"range"`
	Replacement string       `json:"replacement"`
}

// FixSuggestionInfo is a suggested fix that Gerrit can apply to the change.
type FixSuggestionInfo struct {
	Description  string               `json:"description"`
	Replacements []FixReplacementInfo `json:"replacements"`
}

// ReviewInput is the payload for posting a review on a revision. Optional
// values are omitted from the JSON rather than sent as nulls, which Gerrit
// treats differently from absent fields.
type ReviewInput struct {
	Message  string                    `json:"message,omitempty"`
	Tag      string                    `json:"tag,omitempty"`
	Comments map[string][]CommentInput `json:"comments,omitempty"`
}

// HashtagsInput is the payload for editing the hashtags of a change.
type HashtagsInput struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}
