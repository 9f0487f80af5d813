// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

// Package formatbot checks the formatting of changes on a Gerrit instance
// and publishes the reformats suggested by haiku-format as review
// comments.
//
// The pipeline for one change is: fetch the files of its current revision,
// work out which line ranges the change touches, run the formatter over
// exactly those ranges, split the formatter's rewrites into per-range
// suggestions, and post them as one review. Suggestions that fall inside
// the body of a class or struct definition are withheld, since
// haiku-format does not yet get the column layout of class contents right.
package formatbot

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/creachadair/mds/mapset"

	"github.com/lonemadmax/haiku-format-bot/cxxscan"
	"github.com/lonemadmax/haiku-format-bot/gerrit"
	"github.com/lonemadmax/haiku-format-bot/reformat"
)

// extensionPattern matches the files clang-format can handle.
const extensionPattern = "*.{cpp,cc,c++,cxx,cppm,ccm,cxxm,c++m,c,cl,h,hh,hpp,hxx,m,mm,inc,js,ts,proto,protodevel,java,cs,json,v,vh,sv,svh}"

// FormattableFile reports whether the file is one the formatter can handle,
// going by its extension.
func FormattableFile(filename string) bool {
	ok, err := doublestar.Match(extensionPattern, strings.ToLower(path.Base(filename)))
	return err == nil && ok
}

// Review messages, depending on whether there are suggestions.
const (
	noSuggestionsMessage = "Experimental `haiku-format` bot: no formatting changes suggested for this commit."
	suggestionsMessage   = "Experimental `haiku-format` bot: some formatting changes suggested. Note that this bot is " +
		"experimental and the suggestions may not be correct. There is a known issue with changes " +
		"in header files: `haiku-format` does not yet correctly output the column layout of the contents " +
		"of classes.\n\nYou can see and apply the suggestions by running `haiku-format` in your local " +
		"repository."
)

// Gerrit is the part of the Gerrit client the bot uses.
type Gerrit interface {
	GetChange(ctx context.Context, changeID string) (*gerrit.Change, error)
	PublishReview(ctx context.Context, changeID string, review gerrit.ReviewInput, revision string) error
}

// A Formatter produces the reformatted version of source text, restricted
// to the given line segments.
type Formatter interface {
	Run(ctx context.Context, contents []string, segments []gerrit.Segment) ([]string, error)
}

// A Bot reviews the formatting of Gerrit changes. Gerrit and Formatter
// must be set; the other fields are optional.
type Bot struct {
	Gerrit    Gerrit
	Formatter Formatter
	Log       *slog.Logger // defaults to slog.Default
	DryRun    bool         // compute reviews but do not publish them
}

func (b *Bot) logger() *slog.Logger {
	if b.Log != nil {
		return b.Log
	}
	return slog.Default()
}

// ReviewChange fetches a change, reformats the touched segments of its
// files, and returns the resulting review. Files the formatter cannot
// process are skipped with a log message rather than failing the whole
// change.
func (b *Bot) ReviewChange(ctx context.Context, changeID string) (gerrit.ReviewInput, error) {
	log := b.logger()
	change, err := b.Gerrit.GetChange(ctx, changeID)
	if err != nil {
		return gerrit.ReviewInput{}, fmt.Errorf("fetching change %s: %w", changeID, err)
	}
	for _, f := range change.Files {
		log := log.With("file", f.Filename)
		if !FormattableFile(f.Filename) {
			log.Info("ignoring file the formatter cannot handle")
			continue
		}
		if f.PatchContents == nil {
			log.Info("skipping file deleted by the patch")
			continue
		}
		if err := reformat.ComputePatchSegments(f); err != nil {
			log.Warn("cannot determine the touched segments", "error", err)
			continue
		}
		if len(f.PatchSegments) == 0 {
			log.Info("no touched lines to format")
			continue
		}
		formatted, err := b.Formatter.Run(ctx, f.PatchContents, f.PatchSegments)
		if err != nil {
			log.Warn("formatter failed", "error", err)
			continue
		}
		f.SetFormattedContents(formatted)
		if f.FormattedContents == nil {
			log.Info("no reformats")
			continue
		}
		if err := reformat.SplitFormatSegments(f); err != nil {
			log.Warn("cannot split the reformatted output", "error", err)
			f.FormatSegments = nil
			continue
		}
		dropClassBodySegments(f, log)
		log.Info("reformats suggested", "segments", len(f.FormatSegments))
	}
	return changeReview(change), nil
}

// ReformatChange reviews a change and publishes the result on the given
// revision, or on the current one if revision is empty. In dry-run mode
// the review is returned without being published.
func (b *Bot) ReformatChange(ctx context.Context, changeID, revision string) (gerrit.ReviewInput, error) {
	review, err := b.ReviewChange(ctx, changeID)
	if err != nil {
		return gerrit.ReviewInput{}, err
	}
	if b.DryRun {
		b.logger().Info("dry run, not publishing the review", "change", changeID)
		return review, nil
	}
	if err := b.Gerrit.PublishReview(ctx, changeID, review, revision); err != nil {
		return gerrit.ReviewInput{}, fmt.Errorf("publishing review for %s: %w", changeID, err)
	}
	return review, nil
}

// dropClassBodySegments removes suggestions that touch the interior lines
// of a class or struct definition in the patched file. haiku-format lays
// those out with a column scheme this bot cannot yet verify, so such
// suggestions would mostly be noise.
func dropClassBodySegments(f *gerrit.File, log *slog.Logger) {
	lines, err := cxxscan.ClassLines(strings.NewReader(strings.Join(f.PatchContents, "")))
	if err != nil {
		log.Warn("cannot locate class definitions", "error", err)
		return
	}
	if len(lines) == 0 {
		return
	}
	inClass := mapset.New(lines...)
	kept := f.FormatSegments[:0]
	for _, s := range f.FormatSegments {
		end := s.End
		if end == 0 {
			end = s.Start
		}
		overlaps := false
		for line := s.Start; line <= end; line++ {
			if inClass.Has(line) {
				overlaps = true
				break
			}
		}
		if overlaps {
			log.Info("withholding suggestion inside a class body", "segment", s.Segment)
			continue
		}
		kept = append(kept, s)
	}
	f.FormatSegments = kept
}

// changeReview converts the reformatted change into the review to publish.
// Every format segment becomes one comment with an applicable fix
// suggestion; the range ends at character 0 of the line after the segment,
// which is how the Gerrit comment API selects whole lines.
func changeReview(change *gerrit.Change) gerrit.ReviewInput {
	var comments map[string][]gerrit.CommentInput
	for _, f := range change.Files {
		if f.FormattedContents == nil || len(f.FormatSegments) == 0 {
			continue
		}
		for _, s := range f.FormatSegments {
			end := s.End
			if end == 0 {
				end = s.Start
			}
			span := gerrit.CommentRange{StartLine: s.Start, EndLine: end + 1}
			content := strings.Join(s.Content, "")
			if comments == nil {
				comments = make(map[string][]gerrit.CommentInput)
			}
			comments[f.Filename] = append(comments[f.Filename], gerrit.CommentInput{
				Message: fmt.Sprintf("Suggestion from `haiku-format`:\n```c++\n%s\n```", content),
				Range:   &span,
				FixSuggestions: []gerrit.FixSuggestionInfo{{
					Description: "Apply the `haiku-format` suggestion",
					Replacements: []gerrit.FixReplacementInfo{{
						Path:        f.Filename,
						Range:       span,
						Replacement: content,
					}},
				}},
			})
		}
	}

	message := noSuggestionsMessage
	if len(comments) > 0 {
		message = suggestionsMessage
	}
	return gerrit.ReviewInput{Message: message, Tag: gerrit.ReviewTag, Comments: comments}
}
