// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 7, c.Execution.Realisations)
	assert.Equal(t, max(1, runtime.NumCPU()/3), c.Execution.Concurrency)
	assert.Equal(t, 5, c.Results.Channel)
	assert.Equal(t, 16, c.Engine.TailLines)
	assert.Equal(t, 30*time.Second, c.HeartbeatInterval())
	assert.Equal(t, 15*time.Second, c.SimulateDuration())
}

func TestStepCount(t *testing.T) {
	tm := Default().Time
	assert.InDelta(t, 1.0, tm.StaticDt(), 1e-12)
	assert.Equal(t, 27501, tm.StepCount())

	tm.StaticSteps = 3
	assert.InDelta(t, 0.1, tm.StaticDt(), 1e-12)
	assert.Equal(t, 27510, tm.StepCount())
}

func TestStartSample(t *testing.T) {
	c := Default()
	assert.Equal(t, 0, c.StartSample())

	c.Results.StartTime = 6
	assert.Equal(t, 300, c.StartSample())
}

func TestValidate_AggregatesProblems(t *testing.T) {
	c := Default()
	c.Execution.Realisations = 0
	c.Execution.Concurrency = runtime.NumCPU() + 1
	c.Time.Dt = 0
	c.Results.Tolerance = -1

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalid)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems.Errors, 4)
	assert.Contains(t, err.Error(), "execution.realisations")
	assert.Contains(t, err.Error(), "execution.concurrency")
}

func TestValidate_SimulateNeedsNoExecutable(t *testing.T) {
	c := Default()
	c.Engine.Executable = ""
	require.Error(t, c.Validate())

	c.Execution.Simulate = true
	require.NoError(t, c.Validate())
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load("config.toml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
