// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

// Program haiku-format-bot reviews the formatting of changes on Haiku's
// Gerrit instance, using haiku-format to produce the suggestions.
package main

import (
	"os"

	"github.com/lonemadmax/haiku-format-bot/internal/cli"
)

func main() { os.Exit(cli.Main()) }
