// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"strconv"
	"time"

	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
)

// SimulateCommand stands in for the engine when runs are simulated.
const SimulateCommand = "sleep"

// Engine builds the worker command line for a realisation.
type Engine struct {
	Executable       string            // Engine executable name or path
	Steps            int               // Expected dynamic step count, passed with -s2
	Env              map[string]string // Extra environment for every worker
	Simulate         bool              // Replace the engine with SimulateCommand
	SimulateDuration time.Duration     // How long a simulated run sleeps
}

// ProcessSpec returns the launch description for realisation i:
// "<exe> -n <stem> -s2 <steps>" in the realisation's own directory.
func (e Engine) ProcessSpec(l *rundir.Layout, i int) runbatch.ProcessSpec {
	spec := runbatch.ProcessSpec{
		Index:  i,
		Label:  "r" + strconv.Itoa(i),
		Path:   e.Executable,
		Args:   []string{"-n", l.InputStem(), "-s2", strconv.Itoa(e.Steps)},
		Dir:    l.RunDir(i),
		Env:    e.Env,
		Stdout: l.StdoutPath(i),
	}

	if e.Simulate {
		spec.Path = SimulateCommand
		spec.Args = []string{strconv.FormatFloat(e.SimulateDuration.Seconds(), 'f', -1, 64)}
	}

	return spec
}
