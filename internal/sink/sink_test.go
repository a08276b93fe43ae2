// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := Dir{Root: root}

	err := WriteFile(ctx, d, "statistics/baseline.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "a,b\n")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "statistics", "baseline.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
	assert.NoError(t, Close(d))
}

type memSink struct {
	files map[string]*bytes.Buffer
	fail  error
}

type memFile struct {
	*bytes.Buffer
	closeErr error
}

func (f memFile) Close() error { return f.closeErr }

func (m *memSink) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if m.files == nil {
		m.files = make(map[string]*bytes.Buffer)
	}
	b := new(bytes.Buffer)
	m.files[name] = b
	return memFile{b, m.fail}, nil
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	a, b := new(memSink), new(memSink)
	s := Multi(a, b)

	require.NoError(t, WriteFile(ctx, s, "x.txt", func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	}))
	assert.Equal(t, "hello", a.files["x.txt"].String())
	assert.Equal(t, "hello", b.files["x.txt"].String())

	// Close errors from every destination are reported.
	errA, errB := errors.New("a failed"), errors.New("b failed")
	a.fail, b.fail = errA, errB
	err := WriteFile(ctx, s, "y.txt", func(w io.Writer) error { return nil })
	assert.Equal(t, []error{errA, errB}, multierr.Errors(err))
	assert.NoError(t, Close(s))
}

func TestParseURI(t *testing.T) {
	for _, tc := range []struct {
		uri  string
		want Location
		err  bool
	}{
		{uri: "out", want: Location{Scheme: "file", Path: "out"}},
		{uri: "file:///tmp/out", want: Location{Scheme: "file", Path: "/tmp/out"}},
		{uri: "gs://perf-results", want: Location{Scheme: "gs", Bucket: "perf-results"}},
		{uri: "gs://perf-results/kernels/nightly/", want: Location{Scheme: "gs", Bucket: "perf-results", Path: "kernels/nightly"}},
		{uri: "gs:///kernels", err: true},
		{uri: "s3://bucket/x", err: true},
		{uri: "", err: true},
	} {
		t.Run(tc.uri, func(t *testing.T) {
			got, err := ParseURI(tc.uri)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGCSObject(t *testing.T) {
	g := &GCS{Bucket: "b", Prefix: "kernels"}
	assert.Equal(t, "kernels/comparison/implementation_comparison.csv", g.Object("comparison/implementation_comparison.csv"))
	assert.Equal(t, "text/csv", contentType("a.csv"))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("std_percentage_summary.txt"))
}

func TestOpenLocal(t *testing.T) {
	s, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, Dir{}, s)
}
