// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package stats is the `obsrun stats` command: per-realisation extremes folded
// into running statistics with a convergence verdict.
package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/cfgfile"
	"github.com/matt-FFFFFF/obsrun/internal/config"
	"github.com/matt-FFFFFF/obsrun/internal/convergence"
	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/extremes"
	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/matt-FFFFFF/obsrun/internal/verify"
	"github.com/urfave/cli/v3"
)

const (
	listsFlag     = "lists"
	toleranceFlag = "tolerance"
	jobsFlag      = "jobs"
	verifyFlag    = "verify-post"
)

// Options select where extremes come from and how they are judged.
type Options struct {
	FromLists bool    // Read the post-processor's extreme lists instead of the archives
	Tolerance float64 // Overrides results.tolerance when non-negative
	Jobs      int     // Archives read concurrently
	Verify    bool    // Require the post-processor sentinel in every run directory
}

// StatsCmd prints the convergence table of a finished batch.
var StatsCmd = &cli.Command{
	Name:  "stats",
	Usage: "Compute running statistics and convergence over finished realisations",
	Flags: []cli.Flag{
		cfgfile.Flag,
		&cli.BoolFlag{
			Name:  listsFlag,
			Usage: "Read the extremes from the post-processor's max/min lists instead of the result archives",
		},
		&cli.FloatFlag{
			Name:  toleranceFlag,
			Usage: "Convergence tolerance in percent; 0 disables the check",
			Value: -1,
		},
		&cli.IntFlag{
			Name:    jobsFlag,
			Aliases: []string{"j"},
			Usage:   "Number of archives read concurrently",
			Value:   runtime.NumCPU(),
		},
		&cli.BoolFlag{
			Name:  verifyFlag,
			Usage: "Check each realisation's post-processor log for successful completion first",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := cfgfile.Load(ctx, cmd)
		if err != nil {
			ctxlog.Error(ctx, "failed to load configuration", "error", err)
			return cli.Exit("", 1)
		}

		opts := Options{
			FromLists: cmd.Bool(listsFlag),
			Tolerance: cmd.Float(toleranceFlag),
			Jobs:      cmd.Int(jobsFlag),
			Verify:    cmd.Bool(verifyFlag),
		}

		if err := Write(ctx, cmd.Writer, cfg, opts); err != nil {
			ctxlog.Error(ctx, "statistics failed", "error", err)
			return cli.Exit("", 1)
		}

		return nil
	},
}

// Write validates cfg, reads the extremes of every realisation and renders the
// convergence table.
func Write(ctx context.Context, w io.Writer, cfg *config.Config, opts Options) error {
	if err := cfg.Validate(); err != nil {
		return err //nolint:wrapcheck
	}

	layout := cfg.Layout(config.FsFactory())

	if opts.Verify {
		if err := verifyPostprocessed(layout, cfg.Execution.Realisations); err != nil {
			return err
		}
	}

	var (
		records []extremes.Record
		err     error
	)

	if opts.FromLists {
		maxPath, minPath := layout.ExtremeListPaths()
		records, err = extremes.ReadExtremeLists(layout.Fs(), maxPath, minPath)
	} else {
		records, err = extremes.Collect(ctx, layout, cfg.Execution.Realisations, cfg.Results.Channel, cfg.StartSample(), opts.Jobs)
	}

	if err != nil {
		return err //nolint:wrapcheck
	}

	tracker, err := convergence.Recompute(convergence.Sequential(len(records)), records)
	if err != nil {
		return err //nolint:wrapcheck
	}

	tolerance := cfg.Results.Tolerance
	if opts.Tolerance >= 0 {
		tolerance = opts.Tolerance
	}

	if err := convergence.WriteTable(w, tracker, tolerance); err != nil {
		return err //nolint:wrapcheck
	}

	entries := tracker.Entries()
	if dv := cfg.Results.DesignValue; dv > 0 && len(entries) > 0 {
		last := entries[len(entries)-1]

		verdict := "within"
		if last.MeanPlus1Std > dv {
			verdict = "exceeds"
		}

		if _, err := fmt.Fprintf(w, "Mean+1StdDev %.4f %s design value %.4f\n", last.MeanPlus1Std, verdict, dv); err != nil {
			return err //nolint:wrapcheck
		}
	}

	return nil
}

// verifyPostprocessed checks every realisation's post-processor list file and
// joins one error per realisation that did not complete.
func verifyPostprocessed(layout *rundir.Layout, n int) error {
	v := verify.New(layout, verify.PostprocessorLog)

	var errs []error

	for i := 1; i <= n; i++ {
		status, err := v.Verify(i)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if status != verify.StatusSucceeded {
			errs = append(errs, fmt.Errorf("%w: realisation %d: post-processing did not complete", verify.ErrRunFailure, i))
		}
	}

	return errors.Join(errs...)
}
