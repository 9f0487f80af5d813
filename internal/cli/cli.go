// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

// Package cli implements the haiku-format-bot command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	formatbot "github.com/lonemadmax/haiku-format-bot"
	"github.com/lonemadmax/haiku-format-bot/cxxscan"
	"github.com/lonemadmax/haiku-format-bot/gerrit"
	"github.com/lonemadmax/haiku-format-bot/internal/config"
	"github.com/lonemadmax/haiku-format-bot/internal/store"
	"github.com/lonemadmax/haiku-format-bot/reformat"
)

type app struct {
	configPath string
	dryRun     bool

	cfg    config.Config
	client *gerrit.Client
	bot    *formatbot.Bot
}

// New constructs the root command of the bot.
func New() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "haiku-format-bot",
		Short:         "Automates running haiku-format on changes on Haiku's Gerrit instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file (.yaml, .json or .hujson)")
	root.PersistentFlags().BoolVarP(&a.dryRun, "dry-run", "n", false, "compute reviews without publishing them")
	root.AddCommand(a.checkCommand(), a.runCommand(), a.scanCommand())
	return root
}

// Main runs the command line and returns the process exit code.
func Main() int {
	if err := New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// setup loads the configuration, points the default logger at stderr with
// the configured level, and connects to Gerrit.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	client, err := gerrit.NewClient(cmd.Context(), cfg.Gerrit.URL, nil)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.client = client
	a.bot = &formatbot.Bot{
		Gerrit:    client,
		Formatter: reformat.Runner{Command: cfg.Format.Command},
		DryRun:    a.dryRun,
	}
	return nil
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <change-number>",
		Short: "Review the formatting of a single change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("change number %q: %w", args[0], err)
			}
			ctx := cmd.Context()
			id, revision, err := a.client.ChangeFromNumber(ctx, number)
			if err != nil {
				return err
			}
			review, err := a.bot.ReformatChange(ctx, id, revision)
			if err != nil {
				return err
			}
			if a.dryRun {
				out, err := json.MarshalIndent(review, "", "    ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			return nil
		},
	}
}

func (a *app) runCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Review all changes matching the configured query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			st, err := store.Open(a.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			for {
				if err := a.sweep(ctx, st); err != nil {
					return err
				}
				if !watch {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Duration(a.cfg.Poll.Interval)):
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling at the configured interval")
	return cmd
}

// sweep reviews every change the configured query returns that has not
// been reviewed at its current revision yet. A change that fails to
// reformat is logged and skipped, so one broken change cannot stall the
// queue.
func (a *app) sweep(ctx context.Context, st *store.Store) error {
	log := slog.Default()
	changes, err := a.client.QueryChanges(ctx, a.cfg.Poll.Query, a.cfg.Poll.Limit)
	if err != nil {
		return err
	}
	bar := progressbar.Default(int64(len(changes)), "reviewing")
	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			return err
		}
		reviewed, err := st.IsReviewed(change.ID, change.CurrentRevision)
		if err != nil {
			return err
		}
		if reviewed {
			bar.Add(1)
			continue
		}
		if _, err := a.bot.ReformatChange(ctx, change.ID, "current"); err != nil {
			log.Warn("skipping change", "change", change.Number, "error", err)
			bar.Add(1)
			continue
		}
		if !a.dryRun {
			if err := st.MarkReviewed(change.ID, change.CurrentRevision); err != nil {
				return err
			}
			a.tagChange(ctx, change)
		}
		bar.Add(1)
	}
	return bar.Finish()
}

// tagChange adds the configured hashtag to a reviewed change, unless it
// already carries it. Tagging is best effort.
func (a *app) tagChange(ctx context.Context, change gerrit.ChangeInfo) {
	tag := a.cfg.Poll.Hashtag
	if tag == "" || slices.Contains(change.Hashtags, tag) {
		return
	}
	if _, err := a.client.SetHashtags(ctx, change.ID, gerrit.HashtagsInput{Add: []string{tag}}); err != nil {
		slog.Warn("cannot tag change", "change", change.Number, "error", err)
	}
}

func (a *app) scanCommand() *cobra.Command {
	var classLines bool
	cmd := &cobra.Command{
		Use:   "scan <file>...",
		Short: "List the class and struct constructs found in source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				err = scanFile(cmd.OutOrStdout(), name, f, classLines)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&classLines, "class-lines", false, "print the line numbers inside definition bodies instead")
	return cmd
}

func scanFile(out io.Writer, name string, r io.Reader, classLines bool) error {
	if classLines {
		lines, err := cxxscan.ClassLines(r)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintf(out, "%s:%d\n", name, line)
		}
		return nil
	}
	loc := cxxscan.NewLocator(r)
	for loc.Next() {
		m := loc.Match()
		switch m.Kind {
		case cxxscan.Definition:
			fmt.Fprintf(out, "%s:%d: %s definition, body closes at line %d, ends at line %d\n",
				name, m.StartLine, m.Keyword, m.BodyEnd, m.EndLine)
		case cxxscan.ForwardDeclaration:
			fmt.Fprintf(out, "%s:%d: %s forward declaration\n", name, m.StartLine, m.Keyword)
		default:
			fmt.Fprintf(out, "%s:%d: unrecognized %s construct\n", name, m.StartLine, m.Keyword)
		}
	}
	return loc.Err()
}
