// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logutil builds the structured loggers used by the
// command-line tools.
package logutil

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables that override the configured level and
// format.
const (
	EnvLevel  = "LOG_LEVEL"
	EnvFormat = "LOG_FORMAT"
)

// Config returns a zap configuration for the given level ("debug",
// "info", "warn" or "error") and format ("console" or "json").
func Config(level, format string) (zap.Config, error) {
	config := zap.NewProductionConfig()

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return config, fmt.Errorf("unknown log level %q", level)
	}

	switch format {
	case "console", "":
		config.Development = true
		config.Encoding = "console"
		config.EncoderConfig.TimeKey = ""
		config.EncoderConfig.CallerKey = ""
	case "json":
		config.Encoding = "json"
	default:
		return config, fmt.Errorf("unknown log format %q", format)
	}
	return config, nil
}

// FromEnv returns level and format, replaced by the values of
// LOG_LEVEL and LOG_FORMAT if those are set.
func FromEnv(level, format string) (string, string) {
	if v := os.Getenv(EnvLevel); v != "" {
		level = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		format = v
	}
	return level, format
}

// New returns a logger that writes to w. Writes are serialized, so w
// need not be safe for concurrent use.
func New(level, format string, w io.Writer) (*zap.Logger, error) {
	config, err := Config(level, format)
	if err != nil {
		return nil, err
	}
	var enc zapcore.Encoder
	if config.Encoding == "json" {
		enc = zapcore.NewJSONEncoder(config.EncoderConfig)
	} else {
		enc = zapcore.NewConsoleEncoder(config.EncoderConfig)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), config.Level)
	return zap.New(core), nil
}
