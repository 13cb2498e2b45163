// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/matt-FFFFFF/obsrun/internal/teereader"
	"github.com/spf13/afero"
)

const (
	maxStderrSize           = 64 * 1024
	defaultHeartbeatPeriod  = 10 * time.Second
	heartbeatLastLineLength = 120
)

var (
	// ErrLaunch is returned when a worker process could not be started.
	ErrLaunch = errors.New("could not launch process")
	// ErrFailedToCreatePipe is returned when an operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrCaptureFile is returned when the stdout capture file could not be created.
	ErrCaptureFile = errors.New("failed to create output capture file")
)

// ProcessSpec describes one worker process.
type ProcessSpec struct {
	Index  int               // Realisation index, used in logs and events.
	Label  string            // Display label, e.g. "r7".
	Path   string            // Executable, resolved against PATH when not absolute.
	Args   []string          // Arguments, excluding the executable name.
	Dir    string            // Working directory. Never inherited from the parent.
	Env    map[string]string // Extra environment variables.
	Stdout string            // File receiving stdout; empty discards it.
}

// Exit is reported once for every awaited process.
type Exit struct {
	Index    int
	Label    string
	ExitCode int
	Err      error
	Elapsed  time.Duration
	LastLine string
	StdErr   []byte
}

// Handle is a running worker. It is owned by the Supervisor that launched it.
type Handle struct {
	spec     ProcessSpec
	ps       *os.Process
	start    time.Time
	tee      *teereader.LastLineTeeReader
	stderr   *bytes.Buffer
	copyDone chan struct{}
	out      io.Closer
	copyErr  error
}

// Spec returns the ProcessSpec the handle was launched with.
func (h *Handle) Spec() ProcessSpec { return h.spec }

// Pid returns the operating system process id.
func (h *Handle) Pid() int { return h.ps.Pid }

// Supervisor launches worker processes and waits for them.
// It never kills a worker: cancellation only stops further launches upstream.
// Workers are real operating system processes, so ProcessSpec.Dir must exist on
// the OS filesystem. Only the stdout capture file goes through an afero.Fs.
type Supervisor struct {
	heartbeat time.Duration
	reporter  progress.Reporter
	lookPath  func(string) (string, error)
	captureFs afero.Fs
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithHeartbeat sets the period of the "still running" log line.
func WithHeartbeat(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithReporter sends heartbeat output events to r.
func WithReporter(r progress.Reporter) SupervisorOption {
	return func(s *Supervisor) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithCaptureFs creates stdout capture files on fs instead of the OS filesystem.
func WithCaptureFs(fs afero.Fs) SupervisorOption {
	return func(s *Supervisor) {
		if fs != nil {
			s.captureFs = fs
		}
	}
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		heartbeat: defaultHeartbeatPeriod,
		reporter:  progress.NewNullReporter(),
		lookPath:  exec.LookPath,
		captureFs: afero.NewOsFs(),
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

// Launch starts spec.Path in spec.Dir and returns without waiting.
// All failures wrap ErrLaunch.
func (s *Supervisor) Launch(ctx context.Context, spec ProcessSpec) (*Handle, error) {
	logger := ctxlog.Logger(ctx).With("realisation", spec.Index, "label", spec.Label)

	if spec.Dir == "" {
		return nil, fmt.Errorf("%w: %s: working directory must be set", ErrLaunch, spec.Label)
	}

	exe, err := s.lookPath(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, spec.Label, err)
	}

	var out io.WriteCloser = nopWriteCloser{io.Discard}

	if spec.Stdout != "" {
		f, err := s.captureFs.Create(spec.Stdout)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, spec.Label, errors.Join(ErrCaptureFile, err))
		}

		out = f
	}

	rOut, wOut, err := os.Pipe()
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, spec.Label, errors.Join(ErrFailedToCreatePipe, err))
	}

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = out.Close()
		_ = rOut.Close()
		_ = wOut.Close()

		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, spec.Label, errors.Join(ErrFailedToCreatePipe, err))
	}

	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(spec.Env)) {
		env = append(env, k+"="+spec.Env[k])
	}

	args := slices.Concat([]string{filepath.Base(exe)}, spec.Args)

	logger.Debug("starting process", "path", exe, "args", spec.Args, "cwd", spec.Dir)

	ps, err := os.StartProcess(exe, args, &os.ProcAttr{
		Dir:   spec.Dir,
		Env:   env,
		Files: []*os.File{nil, wOut, wErr},
	})

	// The child holds its own copies of the write ends.
	_ = wOut.Close()
	_ = wErr.Close()

	if err != nil {
		_ = rOut.Close()
		_ = rErr.Close()
		_ = out.Close()

		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, spec.Label, err)
	}

	h := &Handle{
		spec:     spec,
		ps:       ps,
		start:    time.Now(),
		tee:      teereader.NewLastLineTeeReader(rOut, out),
		stderr:   &bytes.Buffer{},
		copyDone: make(chan struct{}),
		out:      out,
	}

	go h.drain(rOut, rErr)

	logger.Info("process started", "pid", ps.Pid)

	return h, nil
}

// drain copies both pipes until the child closes them.
func (h *Handle) drain(rOut, rErr *os.File) {
	defer close(h.copyDone)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		_, err := io.CopyN(h.stderr, rErr, maxStderrSize)
		if err == nil {
			_, _ = io.Copy(io.Discard, rErr)
		}

		_ = rErr.Close()
	}()

	_, err := io.Copy(io.Discard, h.tee)
	if err != nil {
		h.copyErr = err
	}

	_ = rOut.Close()

	wg.Wait()
}

// AwaitAll blocks until every handle has terminated, whatever its exit code.
// onExit, when not nil, is called once per handle as it terminates and may be
// called concurrently. The returned duration runs from the earliest start to
// the last exit.
func (s *Supervisor) AwaitAll(ctx context.Context, handles []*Handle, onExit func(Exit)) time.Duration {
	if len(handles) == 0 {
		return 0
	}

	earliest := handles[0].start
	for _, h := range handles[1:] {
		if h.start.Before(earliest) {
			earliest = h.start
		}
	}

	var wg sync.WaitGroup

	for _, h := range handles {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ex := s.wait(ctx, h)
			if onExit != nil {
				onExit(ex)
			}
		}()
	}

	wg.Wait()

	return time.Since(earliest)
}

// wait joins one process, logging a heartbeat until it exits.
func (s *Supervisor) wait(ctx context.Context, h *Handle) Exit {
	logger := ctxlog.Logger(ctx).With("realisation", h.spec.Index, "label", h.spec.Label)
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				elapsed := time.Since(h.start).Round(time.Second)
				last := h.tee.LastLine(heartbeatLastLineLength)

				logger.Info("process running", "pid", h.ps.Pid, "elapsed", elapsed.String(), "lastLine", last)
				s.reporter.Report(progress.Event{
					Path:      []string{h.spec.Label},
					Type:      progress.EventOutput,
					Message:   fmt.Sprintf("running for %s", elapsed),
					Timestamp: time.Now(),
					Data:      progress.EventData{OutputLine: last},
				})
			case <-done:
				return
			}
		}
	}()

	state, err := h.ps.Wait()
	close(done)

	<-h.copyDone

	if cerr := h.out.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("closing %s: %w", h.spec.Stdout, cerr))
	}

	if h.copyErr != nil {
		err = errors.Join(err, h.copyErr)
	}

	ex := Exit{
		Index:    h.spec.Index,
		Label:    h.spec.Label,
		ExitCode: -1,
		Err:      err,
		Elapsed:  time.Since(h.start),
		LastLine: h.tee.LastLine(0),
		StdErr:   h.stderr.Bytes(),
	}

	if state != nil {
		ex.ExitCode = state.ExitCode()
	}

	logger.Info("process finished", "exitCode", ex.ExitCode, "elapsed", ex.Elapsed.Round(time.Millisecond).String())

	return ex
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
