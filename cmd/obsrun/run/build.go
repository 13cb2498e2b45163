// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"fmt"

	"github.com/matt-FFFFFF/obsrun/internal/config"
	"github.com/matt-FFFFFF/obsrun/internal/inputgen"
	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
	"github.com/matt-FFFFFF/obsrun/internal/scheduler"
	"github.com/matt-FFFFFF/obsrun/internal/verify"
	"github.com/spf13/afero"
)

// newScheduler wires a validated configuration into a scheduler.
func newScheduler(cfg *config.Config, fs afero.Fs, reporter progress.Reporter) (*scheduler.Scheduler, *rundir.Layout, error) {
	layout := cfg.Layout(fs)

	plan, err := scheduler.NewPlan(cfg.Execution.Realisations, cfg.Execution.Concurrency)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	opts := scheduler.Options{
		Plan:   plan,
		Layout: layout,
		Engine: scheduler.Engine{
			Executable:       cfg.Engine.Executable,
			Steps:            cfg.Time.StepCount(),
			Env:              cfg.Engine.Env,
			Simulate:         cfg.Execution.Simulate,
			SimulateDuration: cfg.SimulateDuration(),
		},
		Generate:      cfg.Execution.Generate,
		Execute:       cfg.Execution.Execute,
		Reporter:      reporter,
		Prerequisites: cfg.Prerequisites,
	}

	if cfg.Execution.Generate {
		if _, err := fs.Stat(cfg.Input.Template); err != nil {
			return nil, nil, fmt.Errorf("%w: input template %s: %w", scheduler.ErrPrerequisiteMissing, cfg.Input.Template, err)
		}

		gen, err := inputgen.NewTemplateGenerator(layout, cfg.Input.Template,
			inputgen.Seeds(cfg.Input.BaseSeed, cfg.Execution.Realisations), templateParams(cfg))
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}

		opts.Generator = gen
	}

	if cfg.Execution.Execute {
		check := verify.EngineLog
		check.TailLines = cfg.Engine.TailLines

		opts.Launcher = runbatch.NewSupervisor(
			runbatch.WithHeartbeat(cfg.HeartbeatInterval()),
			runbatch.WithReporter(reporter),
			runbatch.WithCaptureFs(fs),
		)
		opts.Verifier = verify.New(layout, check, verify.WithSimulate(cfg.Execution.Simulate))
	}

	s, err := scheduler.New(opts)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	return s, layout, nil
}

func templateParams(cfg *config.Config) inputgen.Params {
	return inputgen.Params{
		ModelName:     cfg.Model.Name,
		StepCount:     cfg.Time.StepCount(),
		Dt:            cfg.Time.Dt,
		DurationHours: cfg.Time.DurationHours,
		Ramp:          cfg.Time.Ramp,
		StaticEnd:     cfg.Time.StaticEnd,
		StaticDt:      cfg.Time.StaticDt(),
	}
}
