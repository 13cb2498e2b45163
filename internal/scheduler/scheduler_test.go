// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
	"github.com/matt-FFFFFF/obsrun/internal/verify"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLauncher struct {
	mu         sync.Mutex
	specs      map[*runbatch.Handle]runbatch.ProcessSpec
	launched   []int
	failLaunch map[int]bool
	exitCodes  map[int]int
	awaits     int
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		specs:      map[*runbatch.Handle]runbatch.ProcessSpec{},
		failLaunch: map[int]bool{},
		exitCodes:  map[int]int{},
	}
}

func (f *fakeLauncher) Launch(_ context.Context, spec runbatch.ProcessSpec) (*runbatch.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failLaunch[spec.Index] {
		return nil, fmt.Errorf("%w: %s: exec format error", runbatch.ErrLaunch, spec.Label)
	}

	h := &runbatch.Handle{}
	f.specs[h] = spec
	f.launched = append(f.launched, spec.Index)

	return h, nil
}

func (f *fakeLauncher) AwaitAll(_ context.Context, handles []*runbatch.Handle, onExit func(runbatch.Exit)) time.Duration {
	f.mu.Lock()
	f.awaits++
	f.mu.Unlock()

	var wg sync.WaitGroup

	for _, h := range handles {
		f.mu.Lock()
		spec := f.specs[h]
		code := f.exitCodes[spec.Index]
		f.mu.Unlock()

		wg.Add(1)

		go func() {
			defer wg.Done()
			onExit(runbatch.Exit{Index: spec.Index, Label: spec.Label, ExitCode: code, Elapsed: time.Millisecond})
		}()
	}

	wg.Wait()

	return time.Millisecond
}

type fakeVerifier struct {
	failed  map[int]bool
	missing map[int]bool
}

func (v fakeVerifier) Verify(i int) (verify.Status, error) {
	if v.missing[i] {
		return verify.StatusFailed, fmt.Errorf("%w: realisation %d: cannot open engine log", verify.ErrRunFailure, i)
	}

	if v.failed[i] {
		return verify.StatusFailed, nil
	}

	return verify.StatusSucceeded, nil
}

type recordingGenerator struct {
	mu    sync.Mutex
	calls []int
	fail  map[int]bool
}

func (g *recordingGenerator) Generate(_ context.Context, i int, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, i)
	if g.fail[i] {
		return errors.New("template error")
	}

	return nil
}

type percentSink struct {
	mu       sync.Mutex
	percents []int
	errs     []string
}

func (s *percentSink) SetProgress(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.percents = append(s.percents, p)
}

func (s *percentSink) ReportError(m string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errs = append(s.errs, m)
}

func stubLookPath(t *testing.T) {
	t.Helper()

	stubs := gostub.Stub(&LookPath, func(file string) (string, error) { return "/opt/simla/bin/" + file, nil })
	t.Cleanup(stubs.Reset)
}

func newTestScheduler(t *testing.T, r, c int, mutate func(*Options)) *Scheduler {
	t.Helper()

	plan, err := NewPlan(r, c)
	require.NoError(t, err)

	opts := Options{
		Plan:     plan,
		Layout:   rundir.New(afero.NewMemMapFs(), "/models", "pipe"),
		Engine:   Engine{Executable: "simla", Steps: 30000},
		Execute:  true,
		Launcher: newFakeLauncher(),
		Verifier: fakeVerifier{},
	}

	if mutate != nil {
		mutate(&opts)
	}

	s, err := New(opts)
	require.NoError(t, err)

	return s
}

func TestRun_AllSucceed(t *testing.T) {
	stubLookPath(t)

	launcher := newFakeLauncher()
	sink := &percentSink{}

	s := newTestScheduler(t, 7, 3, func(o *Options) {
		o.Launcher = launcher
		o.Reporter = progress.NewSinkReporter(sink)
	})

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.Stopped)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, launcher.launched, "launches are ascending, block by block")
	assert.Equal(t, 3, launcher.awaits, "one join per block")
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, report.Succeeded())

	for _, br := range report.Blocks {
		assert.True(t, br.Ran())
		assert.False(t, br.Block.End.Before(br.Block.Start))
	}

	require.NotEmpty(t, sink.percents)
	assert.Equal(t, 0, sink.percents[0])
	assert.Equal(t, 100, sink.percents[len(sink.percents)-1])
	assert.IsNonDecreasing(t, sink.percents)
	assert.Len(t, sink.percents, 7+2, "initial, one per realisation, final")
}

func TestRun_ConcurrentCompletionsKeepProgressMonotonic(t *testing.T) {
	stubLookPath(t)

	for range 200 {
		sink := &percentSink{}

		s := newTestScheduler(t, 64, 64, func(o *Options) {
			o.Reporter = progress.NewSinkReporter(sink)
		})

		_, err := s.Run(context.Background())
		require.NoError(t, err)

		sink.mu.Lock()
		percents := append([]int(nil), sink.percents...)
		sink.mu.Unlock()

		require.Len(t, percents, 64+2)
		require.IsNonDecreasing(t, percents)
	}
}

func TestRun_FailedRealisationDoesNotAbort(t *testing.T) {
	stubLookPath(t)

	launcher := newFakeLauncher()
	launcher.exitCodes[2] = 1
	sink := &percentSink{}

	s := newTestScheduler(t, 5, 2, func(o *Options) {
		o.Launcher = launcher
		o.Verifier = fakeVerifier{failed: map[int]bool{2: true}}
		o.Reporter = progress.NewSinkReporter(sink)
	})

	report, err := s.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)

	assert.ErrorIs(t, err, ErrRunFailure)

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 2, re.Index)
	assert.Contains(t, err.Error(), filepath.FromSlash("/models/pipe/r2/s.slf"))

	assert.Equal(t, []int{1, 3, 4, 5}, report.Succeeded())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, 1, report.Failed()[0].ExitCode)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, launcher.launched, "later blocks still run")
	assert.Len(t, sink.errs, 1)
	assert.Equal(t, 100, sink.percents[len(sink.percents)-1])
}

func TestRun_EveryFailureInBlockIsReported(t *testing.T) {
	stubLookPath(t)

	s := newTestScheduler(t, 4, 4, func(o *Options) {
		o.Verifier = fakeVerifier{failed: map[int]bool{1: true, 3: true}, missing: map[int]bool{4: true}}
	})

	report, err := s.Run(context.Background())
	require.Error(t, err)

	failed := report.Failed()
	require.Len(t, failed, 3)
	assert.Equal(t, 1, failed[0].Index)
	assert.Equal(t, 3, failed[1].Index)
	assert.Equal(t, 4, failed[2].Index)
	assert.Contains(t, failed[2].Err.Error(), "cannot open engine log")
}

func TestRun_SentinelWinsOverExitCode(t *testing.T) {
	stubLookPath(t)

	launcher := newFakeLauncher()
	launcher.exitCodes[1] = 7

	s := newTestScheduler(t, 1, 1, func(o *Options) { o.Launcher = launcher })

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, report.Succeeded())
}

func TestRun_LaunchFailureIsPerRealisation(t *testing.T) {
	stubLookPath(t)

	launcher := newFakeLauncher()
	launcher.failLaunch[2] = true

	s := newTestScheduler(t, 3, 3, func(o *Options) { o.Launcher = launcher })

	report, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrLaunch)
	assert.Equal(t, []int{1, 3}, report.Succeeded())
}

func TestRun_DirectoryCreationFailure(t *testing.T) {
	stubLookPath(t)

	fs := afero.NewMemMapFs()
	layout := rundir.New(fs, "/models", "pipe")
	require.NoError(t, afero.WriteFile(fs, layout.RunDir(2), []byte("in the way"), 0o644))

	launcher := newFakeLauncher()
	s := newTestScheduler(t, 3, 3, func(o *Options) {
		o.Layout = layout
		o.Launcher = launcher
	})

	report, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrDirectoryCreation)
	assert.Equal(t, []int{1, 3}, launcher.launched)
	assert.Equal(t, []int{1, 3}, report.Succeeded())
}

func TestRun_PrerequisiteMissingAbortsBeforeAnyBlock(t *testing.T) {
	stubs := gostub.Stub(&LookPath, func(string) (string, error) { return "", os.ErrNotExist })
	defer stubs.Reset()

	fs := afero.NewMemMapFs()
	launcher := newFakeLauncher()

	s := newTestScheduler(t, 3, 1, func(o *Options) {
		o.Layout = rundir.New(fs, "/models", "pipe")
		o.Launcher = launcher
		o.Prerequisites = []string{"/models/pipe.s4o"}
	})

	report, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrPrerequisiteMissing)
	assert.Contains(t, err.Error(), "/models/pipe.s4o")
	assert.Contains(t, err.Error(), `"simla"`)
	assert.Empty(t, launcher.launched)

	exists, _ := afero.DirExists(fs, "/models/pipe/r1")
	assert.False(t, exists)
}

func TestRun_SimulateSkipsExecutableCheck(t *testing.T) {
	stubs := gostub.Stub(&LookPath, func(string) (string, error) { return "", os.ErrNotExist })
	defer stubs.Reset()

	launcher := newFakeLauncher()
	s := newTestScheduler(t, 2, 2, func(o *Options) {
		o.Engine.Simulate = true
		o.Engine.SimulateDuration = 1500 * time.Millisecond
		o.Launcher = launcher
	})

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	for _, spec := range launcher.specs {
		assert.Equal(t, SimulateCommand, spec.Path)
		assert.Equal(t, []string{"1.5"}, spec.Args)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	stubLookPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	launcher := newFakeLauncher()
	s := newTestScheduler(t, 4, 2, func(o *Options) { o.Launcher = launcher })

	report, err := s.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Stopped)
	assert.Empty(t, launcher.launched)

	for _, br := range report.Blocks {
		assert.False(t, br.Ran())
	}
}

// stopAfterFirstBlock stops the scheduler when block 1 reports completion.
type stopAfterFirstBlock struct {
	s *Scheduler
}

func (r *stopAfterFirstBlock) Report(e progress.Event) {
	if e.Type == progress.EventCompleted && len(e.Path) == 1 && e.Path[0] == "block 1" {
		r.s.Stop()
	}
}

func (r *stopAfterFirstBlock) Close() {}

func TestRun_StopDrainsAfterCurrentBlock(t *testing.T) {
	stubLookPath(t)

	launcher := newFakeLauncher()
	stopper := &stopAfterFirstBlock{}

	s := newTestScheduler(t, 6, 2, func(o *Options) {
		o.Launcher = launcher
		o.Reporter = stopper
	})
	stopper.s = s

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Stopped)
	assert.Equal(t, []int{1, 2}, launcher.launched)
	assert.Equal(t, StatusPending, report.Blocks[1].Realisations[0].Status)
	assert.Contains(t, report.Summary(), "stopped early")
}

func TestRun_GenerateOnly(t *testing.T) {
	gen := &recordingGenerator{fail: map[int]bool{3: true}}
	sink := &percentSink{}

	s := newTestScheduler(t, 5, 2, func(o *Options) {
		o.Execute = false
		o.Launcher = nil
		o.Verifier = nil
		o.Generate = true
		o.Generator = gen
		o.Reporter = progress.NewSinkReporter(sink)
	})

	report, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrGenerate)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, gen.calls)
	assert.Len(t, report.Failed(), 1)
	assert.Equal(t, []int{0, 40, 60, 80, 100, 100}, sink.percents)
}

func TestNew_Validation(t *testing.T) {
	plan, err := NewPlan(1, 1)
	require.NoError(t, err)

	layout := rundir.New(afero.NewMemMapFs(), "/m", "p")

	_, err = New(Options{Layout: layout})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = New(Options{Plan: plan})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = New(Options{Plan: plan, Layout: layout, Execute: true})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = New(Options{Plan: plan, Layout: layout, Generate: true})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestReport_Results(t *testing.T) {
	stubLookPath(t)

	s := newTestScheduler(t, 3, 2, func(o *Options) {
		o.Verifier = fakeVerifier{failed: map[int]bool{3: true}}
	})

	report, _ := s.Run(context.Background())
	results := report.Results()

	require.Len(t, results, 1)
	assert.Equal(t, runbatch.ResultStatusError, results[0].Status)
	require.Len(t, results[0].Children, 2)
	assert.Equal(t, runbatch.ResultStatusSuccess, results[0].Children[0].Status)
	assert.Equal(t, runbatch.ResultStatusError, results[0].Children[1].Status)
	assert.Equal(t, "realisations 3-3", results[0].Children[1].Detail)
	assert.Contains(t, results[0].Children[1].Children[0].Error, "realisation 3")
	assert.Equal(t, map[runbatch.ResultStatus]int{
		runbatch.ResultStatusSuccess: 2,
		runbatch.ResultStatusError:   1,
	}, results.Leaves())
}

const fakeEngine = `#!/bin/sh
# usage: simla -n <stem> -s2 <steps>
case "$(basename "$PWD")" in
  r2) echo "*** ERROR: negative pivot" > "$2.slf"; exit 1 ;;
esac
echo "dynamic steps $4"
printf 'step output\nSIMLA successfully completed\n' > "$2.slf"
`

func TestRun_RealProcesses(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	root := t.TempDir()
	engine := filepath.Join(root, "simla")
	require.NoError(t, os.WriteFile(engine, []byte(fakeEngine), 0o755))

	plan, err := NewPlan(4, 2)
	require.NoError(t, err)

	fs := afero.NewOsFs()
	layout := rundir.New(fs, root, "pipe")

	s, err := New(Options{
		Plan:     plan,
		Layout:   layout,
		Engine:   Engine{Executable: engine, Steps: 1234},
		Execute:  true,
		Launcher: runbatch.NewSupervisor(),
		Verifier: verify.New(layout, verify.EngineLog),
	})
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailure)
	assert.Equal(t, []int{1, 3, 4}, report.Succeeded())

	out, err := os.ReadFile(layout.StdoutPath(3))
	require.NoError(t, err)
	assert.Equal(t, "dynamic steps 1234\n", string(out))
}
