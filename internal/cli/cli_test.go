// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/lonemadmax/haiku-format-bot/internal/cli"
)

func runScan(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScanCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.cpp")
	source := "class Foo;\nstruct Bar {\n\tint x;\n};\n"
	if err := os.WriteFile(path, []byte(source), 0600); err != nil {
		t.Fatalf("Writing %s: %v", path, err)
	}

	got, err := runScan(t, "scan", path)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	want := path + ":1: class forward declaration\n" +
		path + ":2: struct definition, body closes at line 4, ends at line 4\n"
	if got != want {
		t.Errorf("Output:\n got %q\nwant %q", got, want)
	}

	got, err = runScan(t, "scan", "--class-lines", path)
	if err != nil {
		t.Fatalf("scan --class-lines failed: %v", err)
	}
	if want := path + ":3\n"; got != want {
		t.Errorf("Output: got %q, want %q", got, want)
	}
}

func TestScanCommandErrors(t *testing.T) {
	if _, err := runScan(t, "scan", filepath.Join(t.TempDir(), "missing.cpp")); err == nil {
		t.Error("scan(missing): got nil, want error")
	}

	path := filepath.Join(t.TempDir(), "broken.cpp")
	if err := os.WriteFile(path, []byte("struct Bar {\n\tint x;\n"), 0600); err != nil {
		t.Fatalf("Writing %s: %v", path, err)
	}
	if _, err := runScan(t, "scan", path); err == nil {
		t.Error("scan(unterminated body): got nil, want error")
	}
}
