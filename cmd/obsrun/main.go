// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the obsrun command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/matt-FFFFFF/obsrun"
	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/config"
	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/plan"
	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/run"
	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/series"
	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/show"
	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/stats"
	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		config.ConfigCmd,
		plan.PlanCmd,
		run.RunCmd,
		stats.StatsCmd,
		series.SeriesCmd,
		show.ShowCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "obsrun",
	Description: `obsrun runs batches of on-bottom stability realisations with an external
simulation engine. Realisations are executed in blocks of concurrent engine
processes, each in its own run directory, and verified from the engine's log.
The extremes of every realisation are folded into running statistics to judge
when enough realisations have been run.`,
	Usage:     "obsrun run -c config.obsrun.hcl",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	drainer := signalbroker.NewDrainer()
	ctx = signalbroker.WithDrainer(ctx, drainer)

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Watch(ctx, sigCh, drainer.Drain, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", obsrun.Version, obsrun.Commit)

	if err := rootCmd.Run(ctx, os.Args); err != nil {
		ctxlog.Error(ctx, "command failed", "error", err)
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}
