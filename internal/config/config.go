// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

// Package config loads the bot configuration. Configuration files can be
// written in YAML or in JWCC (JSON with comments and trailing commas,
// recognized by a .json or .hujson extension).
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// A Duration wraps time.Duration so it can be given in configuration files
// as a string like "10m" or "1h30m".
type Duration time.Duration

func (d *Duration) set(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.set(s)
}

// Config carries the settings of the bot. The zero value is not usable;
// start from Default.
type Config struct {
	Gerrit struct {
		// URL is the base URL of the Gerrit instance.
		URL string `yaml:"url" json:"url"`
	} `yaml:"gerrit" json:"gerrit"`

	Format struct {
		// Command is the formatter binary. Empty means haiku-format.
		Command string `yaml:"command" json:"command"`
	} `yaml:"format" json:"format"`

	Store struct {
		// Path is the file holding the record of reviewed revisions.
		Path string `yaml:"path" json:"path"`
	} `yaml:"store" json:"store"`

	Poll struct {
		// Query selects the changes the run command considers.
		Query string `yaml:"query" json:"query"`
		// Limit caps how many changes one run handles; 0 means no cap.
		Limit int `yaml:"limit" json:"limit"`
		// Interval is the pause between polls when running continuously.
		Interval Duration `yaml:"interval" json:"interval"`
		// Hashtag, when set, is added to every change the bot reviews.
		Hashtag string `yaml:"hashtag" json:"hashtag"`
	} `yaml:"poll" json:"poll"`

	Logging struct {
		// Level is the minimum log level: debug, info, warn or error.
		Level string `yaml:"level" json:"level"`
	} `yaml:"logging" json:"logging"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	var c Config
	c.Gerrit.URL = "https://review.haiku-os.org/"
	c.Store.Path = "formatbot.db"
	c.Poll.Query = "status:open -is:wip"
	c.Poll.Limit = 25
	c.Poll.Interval = Duration(10 * time.Minute)
	c.Logging.Level = "info"
	return c
}

// Load reads the configuration file at path on top of the defaults. The
// format is chosen by extension: .yaml or .yml for YAML, .json or .hujson
// for JWCC. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	case ".json", ".hujson":
		var std []byte
		std, err = hujson.Standardize(data)
		if err == nil {
			err = json.Unmarshal(std, &c)
		}
	default:
		return Config{}, fmt.Errorf("config file %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	if _, err := c.LogLevel(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return c, nil
}

// LogLevel parses the configured logging level.
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging level %q: %w", c.Logging.Level, err)
	}
	return level, nil
}
