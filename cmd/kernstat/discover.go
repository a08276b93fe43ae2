// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// traceFile is the name of a device event log, and of the processed
// table derived from it.
const traceFile = "profile_log_device.csv"

// findTraces returns every trace file under dir, sorted. Paths that
// pass through a .logs directory are ignored. A missing dir has no
// traces.
func findTraces(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || d.Name() != traceFile {
			return nil
		}
		if strings.Contains(path, ".logs") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	sort.Strings(files)
	return files, err
}

// subdirs returns the names of the directories in dir, sorted.
func subdirs(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// runDirs returns the numbered run directories in dir, in numeric
// order.
func runDirs(dir string) ([]int, error) {
	names, err := subdirs(dir)
	if err != nil {
		return nil, err
	}
	var runs []int
	for _, name := range names {
		if n, err := strconv.Atoi(name); err == nil && n >= 0 && strconv.Itoa(n) == name {
			runs = append(runs, n)
		}
	}
	sort.Ints(runs)
	return runs, nil
}

// exists reports whether path exists.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
