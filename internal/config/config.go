// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the settings of the kernstat command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/sstanisicTT/compute-perf-estimation/internal/logutil"
	"github.com/sstanisicTT/compute-perf-estimation/kernproc"
)

// Config is the configuration of a pipeline run. Directory fields
// that are relative are resolved against Root.
type Config struct {
	Root       string `yaml:"root"`
	Runs       string `yaml:"runs"`
	Processed  string `yaml:"processed"`
	Unified    string `yaml:"unified"`
	Statistics string `yaml:"statistics"`
	Enhanced   string `yaml:"enhanced"`
	Comparison string `yaml:"comparison"`

	// Workers bounds the number of event logs processed at once.
	Workers int `yaml:"workers"`
	// Order is the row order of extracted tables, "sorted" or
	// "first".
	Order string `yaml:"order"`

	Log    Log    `yaml:"log"`
	Store  Store  `yaml:"store"`
	Upload Upload `yaml:"upload"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Store configures the results database. Results are only saved if
// DSN is set.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Label names the result set in the database. It defaults to
	// the base name of Root.
	Label string `yaml:"label"`
}

// Upload configures mirroring of every output file to object
// storage, for example "gs://bucket/prefix".
type Upload struct {
	URI string `yaml:"uri"`
}

// Default returns the default configuration, with the conventional
// data directory layout under the working directory.
func Default() *Config {
	return &Config{
		Root:       ".",
		Runs:       "runs",
		Processed:  "processed",
		Unified:    "unified",
		Statistics: "statistics",
		Enhanced:   "statistics2",
		Comparison: "comparison",
		Workers:    runtime.GOMAXPROCS(0),
		Order:      kernproc.OrderSorted.String(),
		Log:        Log{Level: "info", Format: "console"},
		Store:      Store{Driver: "sqlite3"},
	}
}

// Load reads a YAML configuration file over the defaults. An empty
// path returns the defaults. Logging settings are then overridden by
// the LOG_LEVEL and LOG_FORMAT environment variables.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := c.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	c.Log.Level, c.Log.Format = logutil.FromEnv(c.Log.Level, c.Log.Format)
	return c, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks that c is usable.
func (c *Config) Validate() error {
	if _, err := kernproc.ParseOrder(c.Order); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.Store.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if _, err := logutil.Config(c.Log.Level, c.Log.Format); err != nil {
		return err
	}
	return nil
}

// Path resolves a configured directory against Root.
func (c *Config) Path(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Root, dir)
}

// Label returns the result set label for the store.
func (c *Config) Label() string {
	if c.Store.Label != "" {
		return c.Store.Label
	}
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return filepath.Base(c.Root)
	}
	return filepath.Base(abs)
}
