// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"errors"
	"fmt"

	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
	"github.com/matt-FFFFFF/obsrun/internal/verify"
)

var (
	// ErrPrerequisiteMissing aborts the batch before any block runs.
	ErrPrerequisiteMissing = errors.New("prerequisite missing")
	// ErrInvalidPlan is returned for a realisation count or concurrency below 1.
	ErrInvalidPlan = errors.New("invalid run plan")
	// ErrGenerate is returned when input generation fails for a realisation.
	ErrGenerate = errors.New("input generation failed")

	// ErrDirectoryCreation is fatal to one realisation.
	ErrDirectoryCreation = rundir.ErrDirectoryCreation
	// ErrLaunch is fatal to one realisation.
	ErrLaunch = runbatch.ErrLaunch
	// ErrRunFailure marks a realisation whose log lacks the success sentinel.
	ErrRunFailure = verify.ErrRunFailure
)

// RunError describes why one realisation failed.
type RunError struct {
	Index int
	Dir   string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("realisation %d (%s): %v", e.Index, e.Dir, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
