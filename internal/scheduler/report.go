// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
)

// Status is the lifecycle state of a realisation.
type Status int

const (
	// StatusPending means the realisation has not been launched.
	StatusPending Status = iota
	// StatusRunning means its worker is alive.
	StatusRunning
	// StatusSucceeded means the worker finished and its log carries the sentinel.
	StatusSucceeded
	// StatusFailed is terminal; see Realisation.Err.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Realisation is one run of the analysis.
type Realisation struct {
	Index    int
	Dir      string
	Status   Status
	Elapsed  time.Duration
	ExitCode int
	LastLine string
	StdErr   []byte
	Err      error
}

// Label is "r<index>".
func (r *Realisation) Label() string {
	return "r" + strconv.Itoa(r.Index)
}

// BlockReport records one block and its realisations.
type BlockReport struct {
	Block        Block
	WorkerTime   time.Duration // As returned by the supervisor's join
	Realisations []Realisation
}

// Elapsed is the block's wall-clock time, zero if it never ran.
func (br *BlockReport) Elapsed() time.Duration {
	if br.Block.Start.IsZero() || br.Block.End.IsZero() {
		return 0
	}

	return br.Block.End.Sub(br.Block.Start)
}

// Ran reports whether the block was started.
func (br *BlockReport) Ran() bool {
	return !br.Block.Start.IsZero()
}

func (br *BlockReport) failed() int {
	n := 0

	for _, r := range br.Realisations {
		if r.Status == StatusFailed {
			n++
		}
	}

	return n
}

// Report is the outcome of a batch.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Stopped  bool // A signal or cancellation prevented later blocks from starting
	Blocks   []BlockReport
}

func newReport(id string, plan *Plan, layout *rundir.Layout) *Report {
	r := &Report{
		RunID:   id,
		Started: time.Now(),
		Blocks:  make([]BlockReport, 0, plan.Len()),
	}

	for _, b := range plan.Blocks() {
		br := BlockReport{
			Block:        b,
			Realisations: make([]Realisation, 0, b.Size()),
		}

		for _, i := range b.Indices() {
			br.Realisations = append(br.Realisations, Realisation{Index: i, Dir: layout.RunDir(i)})
		}

		r.Blocks = append(r.Blocks, br)
	}

	return r
}

// Elapsed is the batch's wall-clock time.
func (r *Report) Elapsed() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}

	return r.Finished.Sub(r.Started)
}

// Realisations returns every realisation in index order.
func (r *Report) Realisations() []Realisation {
	var out []Realisation
	for _, b := range r.Blocks {
		out = append(out, b.Realisations...)
	}

	return out
}

// Failed returns the failed realisations in index order.
func (r *Report) Failed() []Realisation {
	var out []Realisation

	for _, rr := range r.Realisations() {
		if rr.Status == StatusFailed {
			out = append(out, rr)
		}
	}

	return out
}

// Succeeded returns the indices of realisations that succeeded.
func (r *Report) Succeeded() []int {
	var out []int

	for _, rr := range r.Realisations() {
		if rr.Status == StatusSucceeded {
			out = append(out, rr.Index)
		}
	}

	return out
}

// Err joins the errors of all failed realisations, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, rr := range r.Failed() {
		errs = append(errs, rr.Err)
	}

	return errors.Join(errs...)
}

// Results converts the report into a result tree for printing and persistence.
func (r *Report) Results() runbatch.Results {
	root := &runbatch.Result{
		Label:   "batch " + r.RunID,
		Status:  runbatch.ResultStatusSuccess,
		Elapsed: r.Elapsed(),
	}

	for _, br := range r.Blocks {
		block := &runbatch.Result{
			Label:   br.Block.Label(),
			Detail:  br.Block.Range(),
			Status:  runbatch.ResultStatusSuccess,
			Elapsed: br.Elapsed(),
		}

		if !br.Ran() {
			block.Status = runbatch.ResultStatusSkipped
		}

		for _, rr := range br.Realisations {
			leaf := &runbatch.Result{
				Label:    rr.Label(),
				ExitCode: rr.ExitCode,
				Elapsed:  rr.Elapsed,
				StdErr:   rr.StdErr,
			}

			if rr.LastLine != "" {
				leaf.StdOut = []byte(rr.LastLine)
			}

			switch rr.Status {
			case StatusSucceeded:
				leaf.Status = runbatch.ResultStatusSuccess
			case StatusFailed:
				leaf.Status = runbatch.ResultStatusError
				leaf.Error = rr.Err.Error()
				block.Status = runbatch.ResultStatusError
			default:
				leaf.Status = runbatch.ResultStatusSkipped
				leaf.Detail = "not executed"
			}

			block.Children = append(block.Children, leaf)
		}

		if block.Status == runbatch.ResultStatusError {
			root.Status = runbatch.ResultStatusError
		}

		root.Children = append(root.Children, block)
	}

	if r.Stopped {
		root.Detail = "stopped before completion"
	}

	return runbatch.Results{root}
}

// Summary is a one-line description of the outcome.
func (r *Report) Summary() string {
	all := r.Realisations()
	sb := strings.Builder{}
	sb.WriteString(strconv.Itoa(len(r.Succeeded())))
	sb.WriteString(" of ")
	sb.WriteString(strconv.Itoa(len(all)))
	sb.WriteString(" realisations succeeded, ")
	sb.WriteString(strconv.Itoa(len(r.Failed())))
	sb.WriteString(" failed")

	if r.Stopped {
		sb.WriteString(", stopped early")
	}

	return sb.String()
}
