// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/spf13/afero"
)

// statusFile is a progress sink that rewrites a small status file on every
// update so that a host application can poll the batch.
//
//	percent: 42
//	error: r3: run failure
type statusFile struct {
	ctx     context.Context
	fs      afero.Fs
	path    string
	mu      sync.Mutex
	percent int
	errs    []string
}

func newStatusFile(ctx context.Context, fs afero.Fs, path string) *statusFile {
	return &statusFile{ctx: ctx, fs: fs, path: path}
}

func (s *statusFile) SetProgress(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.percent = percent
	s.flush()
}

func (s *statusFile) ReportError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errs = append(s.errs, strings.ReplaceAll(message, "\n", " "))
	s.flush()
}

func (s *statusFile) flush() {
	var sb strings.Builder

	fmt.Fprintf(&sb, "percent: %d\n", s.percent)

	for _, e := range s.errs {
		fmt.Fprintf(&sb, "error: %s\n", e)
	}

	if err := afero.WriteFile(s.fs, s.path, []byte(sb.String()), 0o644); err != nil {
		ctxlog.Warn(s.ctx, "failed to write progress file", "file", s.path, "error", err)
	}
}

// withStatusFile adds a status file at path to reporter. Writes happen on a
// listener goroutine fed by a buffered ChannelReporter. The returned close
// func flushes buffered events and must be called once the batch is done.
func withStatusFile(ctx context.Context, reporter progress.Reporter, fs afero.Fs, path string, realisations int) (progress.Reporter, func()) {
	// initial and final percentages, then at most one percentage and one
	// failure per realisation.
	buffered := progress.NewChannelReporter(ctx, 2*realisations+2)
	buffered.Listen(progress.NewSinkListener(newStatusFile(ctx, fs, path)))

	return progress.MultiReporter{reporter, statusEvents{next: buffered}}, buffered.Close
}

// statusEvents forwards only the events a status file records.
type statusEvents struct {
	next progress.Reporter
}

func (s statusEvents) Report(event progress.Event) {
	if event.Type == progress.EventProgress || event.Type == progress.EventFailed {
		s.next.Report(event)
	}
}

func (s statusEvents) Close() {}
