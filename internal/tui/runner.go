// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
)

// Work is the batch the runner drives. It must report through reporter.
type Work func(ctx context.Context, reporter progress.Reporter) (runbatch.Results, error)

// Reporter forwards progress events to a tea program.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// Report implements progress.Reporter.
func (r *Reporter) Report(event progress.Event) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed || r.program == nil {
		return
	}

	r.program.Send(EventMsg{Event: event})
}

// Close implements progress.Reporter.
func (r *Reporter) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.closed = true
}

// Runner owns the tea program for one batch.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
}

// NewRunner creates a runner with an alt-screen program. Extra options are
// passed to tea.NewProgram.
func NewRunner(title string, opts ...tea.ProgramOption) *Runner {
	model := NewModel(title)
	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: &Reporter{program: program},
	}
}

// Reporter returns the reporter feeding this runner's model.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts work and the TUI. After work returns the view stays up until the
// user quits. Quitting early does not stop work; Run waits for it.
func (r *Runner) Run(ctx context.Context, work Work) (runbatch.Results, error) {
	type outcome struct {
		results runbatch.Results
		err     error
	}

	done := make(chan outcome, 1)

	go func() {
		results, err := work(ctx, r.reporter)
		r.program.Send(DoneMsg{Results: results, Err: err})
		done <- outcome{results, err}
	}()

	_, tuiErr := r.program.Run()
	r.reporter.Close()

	out := <-done
	if out.err == nil {
		out.err = tuiErr
	}

	return out.results, out.err
}
