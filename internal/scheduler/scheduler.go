// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
	"github.com/matt-FFFFFF/obsrun/internal/verify"
)

// LookPath resolves the engine executable during the prerequisite check.
var LookPath = exec.LookPath

// Launcher starts and joins worker processes.
type Launcher interface {
	Launch(ctx context.Context, spec runbatch.ProcessSpec) (*runbatch.Handle, error)
	AwaitAll(ctx context.Context, handles []*runbatch.Handle, onExit func(runbatch.Exit)) time.Duration
}

// Verifier classifies a finished realisation.
type Verifier interface {
	Verify(i int) (verify.Status, error)
}

// InputGenerator writes the input artifacts of one realisation into its run directory.
type InputGenerator interface {
	Generate(ctx context.Context, i int, runDir string) error
}

// Options wires a Scheduler. Plan, Layout and, when Execute is set, Launcher
// and Verifier are required.
type Options struct {
	Plan          *Plan
	Layout        *rundir.Layout
	Engine        Engine
	Generate      bool
	Execute       bool
	Generator     InputGenerator
	Launcher      Launcher
	Verifier      Verifier
	Reporter      progress.Reporter
	Prerequisites []string // Paths that must exist before the batch starts
}

// Scheduler drives the blocks of one batch. A Scheduler runs once.
type Scheduler struct {
	opts    Options
	stopped atomic.Bool

	mu        sync.Mutex
	completed int
}

// New validates opts and returns a Scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Plan == nil {
		return nil, fmt.Errorf("%w: no plan", ErrInvalidPlan)
	}

	if opts.Layout == nil {
		return nil, fmt.Errorf("%w: no run directory layout", ErrInvalidPlan)
	}

	if opts.Execute && (opts.Launcher == nil || opts.Verifier == nil) {
		return nil, fmt.Errorf("%w: execution needs a launcher and a verifier", ErrInvalidPlan)
	}

	if opts.Generate && opts.Generator == nil {
		return nil, fmt.Errorf("%w: input generation needs a generator", ErrInvalidPlan)
	}

	if opts.Reporter == nil {
		opts.Reporter = progress.NewNullReporter()
	}

	opts.Reporter = &serialReporter{next: opts.Reporter}

	return &Scheduler{opts: opts}, nil
}

// Stop prevents any further block from starting. Running workers are unaffected.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
}

// Run executes the plan. The report is returned even when realisations failed;
// the error then joins one *RunError per failed realisation. A missing
// prerequisite returns a nil report.
func (s *Scheduler) Run(ctx context.Context) (*Report, error) {
	if err := s.checkPrerequisites(); err != nil {
		return nil, err
	}

	if err := s.opts.Layout.EnsureModelDir(); err != nil {
		return nil, errors.Join(ErrPrerequisiteMissing, err)
	}

	plan := s.opts.Plan
	report := newReport(uuid.NewString(), plan, s.opts.Layout)
	logger := ctxlog.Logger(ctx).With("runID", report.RunID)
	ctx = ctxlog.New(ctx, logger)

	logger.Info("batch starting",
		"realisations", plan.Realisations(),
		"concurrency", plan.Concurrency(),
		"blocks", plan.Len(),
		"generate", s.opts.Generate,
		"execute", s.opts.Execute,
		"simulate", s.opts.Engine.Simulate)

	tracking := s.opts.Generate || s.opts.Execute
	if tracking {
		s.reportPercent(0)
	}

	for bi := range report.Blocks {
		br := &report.Blocks[bi]

		if err := ctx.Err(); err != nil || s.stopped.Load() {
			logger.Warn("batch stopped before block", "block", br.Block.Number, "cancelled", err != nil)
			report.Stopped = true

			break
		}

		s.runBlock(ctx, br)
	}

	report.Finished = time.Now()

	if tracking && !report.Stopped {
		s.reportPercent(100)
	}

	logger.Info("batch finished",
		"elapsed", report.Elapsed().Round(time.Second).String(),
		"failed", len(report.Failed()),
		"stopped", report.Stopped)

	return report, report.Err()
}

func (s *Scheduler) checkPrerequisites() error {
	fs := s.opts.Layout.Fs()

	var errs []error

	for _, p := range s.opts.Prerequisites {
		if _, err := fs.Stat(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrPrerequisiteMissing, p, err))
		}
	}

	if s.opts.Execute && !s.opts.Engine.Simulate {
		if _, err := LookPath(s.opts.Engine.Executable); err != nil {
			errs = append(errs, fmt.Errorf("%w: engine executable %q: %w", ErrPrerequisiteMissing, s.opts.Engine.Executable, err))
		}
	}

	return errors.Join(errs...)
}

func (s *Scheduler) runBlock(ctx context.Context, br *BlockReport) {
	b := &br.Block
	reporter := progress.NewChildReporter(s.opts.Reporter, b.Label())
	logger := ctxlog.Logger(ctx).With("block", b.Number)

	b.Start = time.Now()

	logger.Info("block starting", "first", b.First, "last", b.Last)
	reporter.Report(progress.Event{
		Type:      progress.EventStarted,
		Message:   "block started, " + b.Range(),
		Timestamp: b.Start,
	})

	ready := s.prepare(ctx, br, reporter)

	switch {
	case s.opts.Execute:
		s.execute(ctx, br, ready, reporter)
	case s.opts.Generate:
		s.advance(len(ready))
	}

	b.End = time.Now()

	logger.Info("block finished", "elapsed", br.Elapsed().Round(time.Second).String(), "failed", br.failed())
	reporter.Report(progress.Event{
		Type:      progress.EventCompleted,
		Message:   fmt.Sprintf("block finished, %d failed", br.failed()),
		Timestamp: b.End,
		Data:      progress.EventData{Elapsed: br.Elapsed()},
	})
}

// prepare creates run directories and generates inputs. It returns the
// realisations that are ready to launch.
func (s *Scheduler) prepare(ctx context.Context, br *BlockReport, reporter progress.Reporter) []*Realisation {
	ready := make([]*Realisation, 0, len(br.Realisations))

	for ri := range br.Realisations {
		r := &br.Realisations[ri]

		dir, err := s.opts.Layout.EnsureRunDir(r.Index)
		if err != nil {
			s.fail(ctx, r, reporter, err)
			continue
		}

		if s.opts.Generate {
			if err := s.opts.Generator.Generate(ctx, r.Index, dir); err != nil {
				s.fail(ctx, r, reporter, errors.Join(ErrGenerate, err))
				continue
			}
		}

		ready = append(ready, r)
	}

	return ready
}

func (s *Scheduler) execute(ctx context.Context, br *BlockReport, ready []*Realisation, reporter progress.Reporter) {
	handles := make([]*runbatch.Handle, 0, len(ready))
	byIndex := make(map[int]*Realisation, len(ready))

	for _, r := range ready {
		spec := s.opts.Engine.ProcessSpec(s.opts.Layout, r.Index)

		h, err := s.opts.Launcher.Launch(ctx, spec)
		if err != nil {
			s.fail(ctx, r, reporter, err)
			continue
		}

		r.Status = StatusRunning
		byIndex[r.Index] = r
		handles = append(handles, h)

		reporter.Report(progress.Event{
			Path:      []string{r.Label()},
			Type:      progress.EventStarted,
			Message:   "launched",
			Timestamp: time.Now(),
		})
	}

	br.WorkerTime = s.opts.Launcher.AwaitAll(ctx, handles, func(ex runbatch.Exit) {
		r := byIndex[ex.Index]
		if r == nil {
			return
		}

		s.finish(ctx, r, ex, reporter)
	})
}

// finish verifies one exited worker. It runs on the supervisor's goroutines;
// each call owns its realisation and shares only the progress counter.
func (s *Scheduler) finish(ctx context.Context, r *Realisation, ex runbatch.Exit, reporter progress.Reporter) {
	r.Elapsed = ex.Elapsed
	r.ExitCode = ex.ExitCode
	r.LastLine = ex.LastLine
	r.StdErr = ex.StdErr

	status, err := s.opts.Verifier.Verify(r.Index)

	switch {
	case err != nil:
		s.fail(ctx, r, reporter, errors.Join(err, ex.Err))
		return
	case status != verify.StatusSucceeded:
		s.fail(ctx, r, reporter, errors.Join(
			fmt.Errorf("%w: success sentinel not found in %s", ErrRunFailure, s.opts.Layout.LogPath(r.Index)),
			ex.Err))

		return
	}

	if ex.ExitCode != 0 {
		ctxlog.Warn(ctx, "worker exited non-zero but its log reports success",
			"realisation", r.Index, "exitCode", ex.ExitCode)
	}

	r.Status = StatusSucceeded

	reporter.Report(progress.Event{
		Path:      []string{r.Label()},
		Type:      progress.EventCompleted,
		Message:   "succeeded",
		Timestamp: time.Now(),
		Data:      progress.EventData{ExitCode: ex.ExitCode, Elapsed: ex.Elapsed},
	})

	s.advance(1)
}

func (s *Scheduler) fail(ctx context.Context, r *Realisation, reporter progress.Reporter, err error) {
	r.Status = StatusFailed
	r.Err = &RunError{Index: r.Index, Dir: r.Dir, Err: err}

	ctxlog.Error(ctx, "realisation failed", "realisation", r.Index, "error", err)
	reporter.Report(progress.Event{
		Path:      []string{r.Label()},
		Type:      progress.EventFailed,
		Message:   r.Err.Error(),
		Timestamp: time.Now(),
		Data:      progress.EventData{ExitCode: r.ExitCode, Error: r.Err, Elapsed: r.Elapsed},
	})

	s.advance(1)
}

// advance counts n more terminal realisations and publishes the percentage.
// Publishing happens under the lock so that concurrent completions cannot
// reorder their percentages.
func (s *Scheduler) advance(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed += n
	s.reportPercent(100 * s.completed / s.opts.Plan.Realisations())
}

func (s *Scheduler) reportPercent(pct int) {
	s.opts.Reporter.Report(progress.Event{
		Type:      progress.EventProgress,
		Message:   fmt.Sprintf("%d%% complete", pct),
		Timestamp: time.Now(),
		Data:      progress.EventData{Percent: pct},
	})
}

// serialReporter lets completion callbacks share a reporter that is not itself safe for concurrent use.
type serialReporter struct {
	mu   sync.Mutex
	next progress.Reporter
}

func (r *serialReporter) Report(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next.Report(e)
}

func (r *serialReporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next.Close()
}
