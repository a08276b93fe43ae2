// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "statistics2", c.Enhanced)
	assert.Equal(t, "sorted", c.Order)
	assert.Equal(t, filepath.Join("data", "runs"), (&Config{Root: "data"}).Path("runs"))
	assert.Equal(t, "/abs/runs", c.Path("/abs/runs"))
}

func TestLoad(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "json")

	path := filepath.Join(t.TempDir(), "kernstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
root: /data/counter
workers: 3
order: first
log:
  level: debug
store:
  driver: mysql
  dsn: user:pw@tcp(db:3306)/perf
  label: nightly
upload:
  uri: gs://perf-results/kernels
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, "/data/counter", c.Root)
	assert.Equal(t, "runs", c.Runs, "unset fields keep their defaults")
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, "first", c.Order)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, c.Log)
	assert.Equal(t, "mysql", c.Store.Driver)
	assert.Equal(t, "nightly", c.Label())
	assert.Equal(t, "gs://perf-results/kernels", c.Upload.URI)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wrkers: 3\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "wrkers")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	c, err := Load(empty)
	require.NoError(t, err)
	assert.Equal(t, "runs", c.Runs)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"order":   func(c *Config) { c.Order = "random" },
		"workers": func(c *Config) { c.Workers = 0 },
		"driver":  func(c *Config) { c.Store.Driver = "postgres" },
		"level":   func(c *Config) { c.Log.Level = "loud" },
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLabel(t *testing.T) {
	c := Default()
	c.Root = filepath.Join(t.TempDir(), "counter-data")
	assert.Equal(t, "counter-data", c.Label())
}
