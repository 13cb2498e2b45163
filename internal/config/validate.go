// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ErrInvalid is the sentinel wrapped by every ValidationError.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems *multierror.Error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalid, e.Problems.Error())
}

// Unwrap returns ErrInvalid followed by the individual problems.
func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrInvalid}, e.Problems.WrappedErrors()...)
}

// Validate checks the configuration once, before any batch starts.
func (c *Config) Validate() error {
	var result *multierror.Error

	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if c.Model.Dir == "" {
		add("model.dir must not be empty")
	}

	if c.Model.Name == "" {
		add("model.name must not be empty")
	}

	if c.Model.InputStem == "" {
		add("model.input_stem must not be empty")
	}

	if c.Execution.Execute && !c.Execution.Simulate && c.Engine.Executable == "" {
		add("engine.executable must be set when execution is enabled")
	}

	if c.Engine.TailLines < 1 {
		add("engine.tail_lines must be at least 1, got %d", c.Engine.TailLines)
	}

	if c.Engine.Heartbeat != "" {
		if _, err := time.ParseDuration(c.Engine.Heartbeat); err != nil {
			add("engine.heartbeat: %w", err)
		}
	}

	if c.Execution.Realisations < 1 {
		add("execution.realisations must be at least 1, got %d", c.Execution.Realisations)
	}

	if cpus := runtime.NumCPU(); c.Execution.Concurrency < 1 || c.Execution.Concurrency > cpus {
		add("execution.concurrency must be between 1 and %d, got %d", cpus, c.Execution.Concurrency)
	}

	if c.Execution.Simulate && c.Execution.SimulateSeconds < 0 {
		add("execution.simulate_seconds must not be negative")
	}

	if c.Execution.Generate && c.Input.Template == "" {
		add("input.template must be set when generation is enabled")
	}

	if c.Time.Dt <= 0 {
		add("time.dt must be positive, got %g", c.Time.Dt)
	}

	if c.Time.DurationHours <= 0 {
		add("time.duration_hours must be positive, got %g", c.Time.DurationHours)
	}

	if c.Time.Ramp < 0 || c.Time.StaticEnd <= 0 {
		add("time.ramp must not be negative and time.static_end must be positive")
	}

	if c.Results.Channel < 1 {
		add("results.channel must be at least 1, got %d", c.Results.Channel)
	}

	if c.Results.PlotDt <= 0 {
		add("results.plot_dt must be positive, got %g", c.Results.PlotDt)
	}

	if c.Results.PlotBudget < 1 {
		add("results.plot_budget must be at least 1, got %d", c.Results.PlotBudget)
	}

	if c.Results.Tolerance < 0 {
		add("results.tolerance must not be negative, got %g", c.Results.Tolerance)
	}

	if result == nil {
		return nil
	}

	return &ValidationError{Problems: result}
}
