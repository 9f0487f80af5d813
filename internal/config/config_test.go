// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lonemadmax/haiku-format-bot/internal/config"
)

func writeConfig(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		t.Fatalf("Writing %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Gerrit.URL != "https://review.haiku-os.org/" {
		t.Errorf("Gerrit URL: got %q", c.Gerrit.URL)
	}
	if c.Poll.Interval != config.Duration(10*time.Minute) {
		t.Errorf("Poll interval: got %v, want 10m", time.Duration(c.Poll.Interval))
	}
	if level, err := c.LogLevel(); err != nil || level != slog.LevelInfo {
		t.Errorf("LogLevel: got %v, %v; want info", level, err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "bot.yaml", `
gerrit:
  url: https://gerrit.example.org/
format:
  command: clang-format-16
poll:
  interval: 1h30m
  hashtag: autoformat
logging:
  level: debug
`)
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Gerrit.URL != "https://gerrit.example.org/" {
		t.Errorf("Gerrit URL: got %q", c.Gerrit.URL)
	}
	if c.Format.Command != "clang-format-16" {
		t.Errorf("Format command: got %q", c.Format.Command)
	}
	if c.Poll.Interval != config.Duration(90*time.Minute) {
		t.Errorf("Poll interval: got %v, want 1h30m", time.Duration(c.Poll.Interval))
	}
	if c.Poll.Hashtag != "autoformat" {
		t.Errorf("Poll hashtag: got %q", c.Poll.Hashtag)
	}
	// Settings the file does not mention keep their defaults.
	if c.Store.Path != "formatbot.db" {
		t.Errorf("Store path: got %q, want the default", c.Store.Path)
	}
	if level, err := c.LogLevel(); err != nil || level != slog.LevelDebug {
		t.Errorf("LogLevel: got %v, %v; want debug", level, err)
	}
}

func TestLoadHuJSON(t *testing.T) {
	path := writeConfig(t, "bot.hujson", `{
	// The staging instance, not the real one.
	"gerrit": {"url": "https://staging.example.org/"},
	"poll": {
		"query": "status:open label:Verified+1",
		"limit": 5, // keep staging load low
	},
}`)
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Gerrit.URL != "https://staging.example.org/" {
		t.Errorf("Gerrit URL: got %q", c.Gerrit.URL)
	}
	if c.Poll.Query != "status:open label:Verified+1" {
		t.Errorf("Poll query: got %q", c.Poll.Query)
	}
	if c.Poll.Limit != 5 {
		t.Errorf("Poll limit: got %d, want 5", c.Poll.Limit)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing): got nil, want error")
	}
	if _, err := config.Load(writeConfig(t, "bot.toml", "x = 1")); err == nil {
		t.Error("Load(.toml): got nil, want error for an unsupported extension")
	}
	if _, err := config.Load(writeConfig(t, "bot.yaml", "poll:\n  interval: soon\n")); err == nil {
		t.Error("Load(bad duration): got nil, want error")
	}
	if _, err := config.Load(writeConfig(t, "bot.yaml", "logging:\n  level: loud\n")); err == nil {
		t.Error("Load(bad level): got nil, want error")
	}
}
