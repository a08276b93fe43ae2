// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sink provides destinations for output files: a local
// directory tree or a Cloud Storage bucket.
package sink

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
)

// A Sink creates named output files. Names are slash-separated paths
// relative to the sink's root.
type Sink interface {
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}

// Close releases any resources held by s.
func Close(s Sink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Dir is a Sink that writes files under a local directory, creating
// parent directories as needed. Absolute names are not rebased.
type Dir struct {
	Root string
}

// Create creates or truncates the file name under d.Root.
func (d Dir) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	p := filepath.FromSlash(name)
	if !filepath.IsAbs(p) {
		p = filepath.Join(d.Root, p)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o777); err != nil {
		return nil, err
	}
	return os.Create(p)
}

// GCS is a Sink that writes objects to a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	Bucket string
	Prefix string
}

// NewGCS returns a Sink that writes objects named Prefix/name to
// bucket.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client, Bucket: bucket, Prefix: prefix}, nil
}

// Object returns the object name that name is written to.
func (g *GCS) Object(name string) string {
	return path.Join(g.Prefix, name)
}

// Create starts writing the object for name. The object is only
// committed when the returned writer is closed without error.
func (g *GCS) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	w := g.client.Bucket(g.Bucket).Object(g.Object(name)).NewWriter(ctx)
	w.ContentType = contentType(name)
	return w, nil
}

// Close closes the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// A Location is a parsed sink URI.
type Location struct {
	// Scheme is "file" or "gs".
	Scheme string
	// Bucket is the Cloud Storage bucket, for "gs".
	Bucket string
	// Path is the directory for "file", or the object prefix for
	// "gs".
	Path string
}

// ParseURI parses a sink URI. Plain paths and file:// URIs name local
// directories; gs://bucket/prefix names a Cloud Storage location.
func ParseURI(uri string) (Location, error) {
	if !strings.Contains(uri, "://") {
		if uri == "" {
			return Location{}, fmt.Errorf("empty sink URI")
		}
		return Location{Scheme: "file", Path: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, err
	}
	switch u.Scheme {
	case "file":
		return Location{Scheme: "file", Path: u.Host + u.Path}, nil
	case "gs":
		if u.Host == "" {
			return Location{}, fmt.Errorf("%s: missing bucket", uri)
		}
		return Location{Scheme: "gs", Bucket: u.Host, Path: strings.Trim(u.Path, "/")}, nil
	}
	return Location{}, fmt.Errorf("%s: unsupported scheme %q", uri, u.Scheme)
}

// Open returns the Sink named by uri. opts are passed to the storage
// client for gs:// URIs.
func Open(ctx context.Context, uri string, opts ...option.ClientOption) (Sink, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if loc.Scheme == "gs" {
		return NewGCS(ctx, loc.Bucket, loc.Path, opts...)
	}
	return Dir{Root: loc.Path}, nil
}

type multi []Sink

// Multi returns a Sink that writes every file to all of sinks.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	mw := &multiWriter{}
	for _, s := range m {
		w, err := s.Create(ctx, name)
		if err != nil {
			return nil, multierr.Append(err, mw.Close())
		}
		mw.ws = append(mw.ws, w)
	}
	mw.w = io.MultiWriter(asWriters(mw.ws)...)
	return mw, nil
}

func (m multi) Close() error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, Close(s))
	}
	return err
}

func asWriters(ws []io.WriteCloser) []io.Writer {
	out := make([]io.Writer, len(ws))
	for i, w := range ws {
		out[i] = w
	}
	return out
}

type multiWriter struct {
	w  io.Writer
	ws []io.WriteCloser
}

func (m *multiWriter) Write(p []byte) (int, error) {
	return m.w.Write(p)
}

// Close closes every underlying writer and returns all their errors.
func (m *multiWriter) Close() error {
	var err error
	for _, w := range m.ws {
		err = multierr.Append(err, w.Close())
	}
	return err
}

// WriteFile creates name in s and writes it with f.
func WriteFile(ctx context.Context, s Sink, name string, f func(io.Writer) error) (err error) {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, w.Close())
	}()
	return f(w)
}
