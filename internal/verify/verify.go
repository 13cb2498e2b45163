// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package verify decides whether a finished run succeeded by looking for a
// completion sentinel near the end of the run's list file. Exit codes are not
// consulted; the engines exit zero on many failures.
package verify

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/matt-FFFFFF/obsrun/internal/rundir"
)

// ErrRunFailure is returned when a run cannot be classified because its log is unreadable.
var ErrRunFailure = errors.New("run failure")

// Status is the verdict for one run.
type Status int

const (
	// StatusUnknown means the run was not verified.
	StatusUnknown Status = iota
	// StatusSucceeded means the sentinel was found.
	StatusSucceeded
	// StatusFailed means the sentinel was absent or the log was unreadable.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Check describes which log to read and what to look for.
type Check struct {
	Name      string
	Sentinel  string
	TailLines int
	Path      func(l *rundir.Layout, i int) string
}

// EngineLog checks the analysis engine's list file.
var EngineLog = Check{
	Name:      "engine",
	Sentinel:  "SIMLA successfully completed",
	TailLines: 16,
	Path:      (*rundir.Layout).LogPath,
}

// PostprocessorLog checks the post-processor's list file.
var PostprocessorLog = Check{
	Name:      "postprocessor",
	Sentinel:  "DYNPOST successfully completed",
	TailLines: 17,
	Path:      (*rundir.Layout).PostprocessorLogPath,
}

// Verifier classifies runs of one layout.
type Verifier struct {
	layout   *rundir.Layout
	check    Check
	simulate bool
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithSimulate makes every run succeed without reading any file.
func WithSimulate(simulate bool) Option {
	return func(v *Verifier) {
		v.simulate = simulate
	}
}

// New creates a Verifier.
func New(layout *rundir.Layout, check Check, opts ...Option) *Verifier {
	v := &Verifier{
		layout: layout,
		check:  check,
	}

	for _, o := range opts {
		o(v)
	}

	return v
}

// Verify reports whether realisation i succeeded. A missing or unreadable log
// yields StatusFailed and an error wrapping ErrRunFailure.
func (v *Verifier) Verify(i int) (Status, error) {
	if v.simulate {
		return StatusSucceeded, nil
	}

	path := v.check.Path(v.layout, i)

	f, err := v.layout.Fs().Open(path)
	if err != nil {
		return StatusFailed, fmt.Errorf("%w: realisation %d: cannot open %s log %s: %w", ErrRunFailure, i, v.check.Name, path, err)
	}
	defer f.Close() //nolint:errcheck

	found, err := ContainsInTail(f, v.check.Sentinel, v.check.TailLines)
	if err != nil {
		return StatusFailed, fmt.Errorf("%w: realisation %d: reading %s: %w", ErrRunFailure, i, path, err)
	}

	if !found {
		return StatusFailed, nil
	}

	return StatusSucceeded, nil
}

// ContainsInTail reports whether any of the last n lines of r contains sentinel.
func ContainsInTail(r io.Reader, sentinel string, n int) (bool, error) {
	lines, err := Tail(r, n)
	if err != nil {
		return false, err
	}

	for _, line := range lines {
		if strings.Contains(line, sentinel) {
			return true, nil
		}
	}

	return false, nil
}

// Tail returns up to the last n lines of r. A final line without a newline counts.
func Tail(r io.Reader, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	ring := make([]string, 0, n)
	next := 0
	br := bufio.NewReader(r)

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")

			if len(ring) < n {
				ring = append(ring, line)
			} else {
				ring[next] = line
			}

			next = (next + 1) % n
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	if len(ring) < n {
		return ring, nil
	}

	return slices.Concat(ring[next:], ring[:next]), nil
}
