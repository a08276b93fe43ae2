// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kernproc reduces the events of a device event log to one
// kernel metric row per measurement point.
//
// The typical steps for processing one log are:
//
// 1. Read events with a tracefmt.Reader. The reader has already
// dropped rows from processors other than the compute (TRISC) cores.
//
// 2. Add each event to an Extractor. The Extractor partitions events
// by Key, the identity of one processor within one run, and keeps
// only the running aggregates it needs: the number and latest
// timestamp of kernel zone start and end markers, and the sums of the
// circular-buffer wait zones.
//
// 3. Call Rows to obtain a RunTable. Measurement points that never
// ran a kernel are dropped. Rows come out in a deterministic order
// (sorted by Key unless first-seen order was requested), which is
// what lets independently produced tables be aligned by row position
// later on.
//
// Ill-formed kernel zones are never guessed at: a measurement point
// without exactly one start and one end marker gets a kernel length
// of 0 and a *GroupError warning.
package kernproc
