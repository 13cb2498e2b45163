// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run is the `obsrun run` command: generate inputs, execute every
// realisation block by block and report what succeeded.
package run

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/cfgfile"
	"github.com/matt-FFFFFF/obsrun/internal/config"
	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/inputgen"
	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
	"github.com/matt-FFFFFF/obsrun/internal/signalbroker"
	"github.com/matt-FFFFFF/obsrun/internal/tui"
	"github.com/urfave/cli/v3"
)

const (
	outFlag                  = "out"
	realisationsFlag         = "realisations"
	concurrencyFlag          = "concurrency"
	simulateFlag             = "simulate"
	generateOnlyFlag         = "generate-only"
	noGenerateFlag           = "no-generate"
	noOutputStdErrFlag       = "no-output-stderr"
	outputSuccessDetailsFlag = "output-success-details"
	tuiFlag                  = "tui"
	progressFileFlag         = "progress-file"
	cliExitStr               = ""
)

// RunCmd runs a batch of realisations.
var RunCmd = &cli.Command{
	Name:  "run",
	Usage: "Generate inputs and run every realisation of a batch",
	Description: `Run the realisations described by the configuration file in blocks of at most
'concurrency' engine processes. Each block starts only after every process of the
previous block has exited. Failed realisations are reported but never stop the batch.

The first interrupt stops further blocks from being launched; running engines finish.
A second interrupt cancels the command.

To save the results to a file, use --out and view them later with 'obsrun show'.`,
	Flags: []cli.Flag{
		cfgfile.Flag,
		&cli.StringFlag{
			Name:      outFlag,
			Usage:     "Write the results tree to this file",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.IntFlag{
			Name:    realisationsFlag,
			Aliases: []string{"n"},
			Usage:   "Override the number of realisations",
		},
		&cli.IntFlag{
			Name:    concurrencyFlag,
			Aliases: []string{"p"},
			Usage:   "Override the number of engine processes per block",
		},
		&cli.BoolFlag{
			Name:  simulateFlag,
			Usage: "Replace the engine with a short sleep and treat every run as successful",
		},
		&cli.BoolFlag{
			Name:  generateOnlyFlag,
			Usage: "Write the inputs but do not execute the engine",
		},
		&cli.BoolFlag{
			Name:  noGenerateFlag,
			Usage: "Execute with the inputs already present in the run directories",
		},
		&cli.BoolFlag{
			Name:    noOutputStdErrFlag,
			Aliases: []string{"no-stderr"},
			Usage:   "Exclude stderr output in the results",
		},
		&cli.BoolFlag{
			Name:    outputSuccessDetailsFlag,
			Aliases: []string{"success"},
			Usage:   "Include successful results in the output",
		},
		&cli.BoolFlag{
			Name:    tuiFlag,
			Aliases: []string{"t", "interactive"},
			Usage:   "Run with interactive Terminal User Interface (TUI) showing real-time progress",
		},
		&cli.StringFlag{
			Name:      progressFileFlag,
			Usage:     "Keep the batch percentage and failures in this file while running",
			TakesFile: true,
			OnlyOnce:  true,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	cfg, err := cfgfile.Load(ctx, cmd)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return cli.Exit(cliExitStr, 1)
	}

	applyOverrides(cfg, cmd)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return cli.Exit(cliExitStr, 1)
	}

	progressFile := cmd.String(progressFileFlag)

	work := func(ctx context.Context, reporter progress.Reporter) (runbatch.Results, error) {
		if progressFile != "" {
			var closeStatus func()

			reporter, closeStatus = withStatusFile(ctx, reporter, config.FsFactory(), progressFile, cfg.Execution.Realisations)
			defer closeStatus()
		}

		return runBatch(ctx, cfg, reporter)
	}

	var (
		res     runbatch.Results
		execErr error
	)

	if cmd.Bool(tuiFlag) {
		logger.Info("Starting interactive TUI mode...")

		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForTUI(ctx, buf)
		runner := tui.NewRunner(fmt.Sprintf("obsrun: %s (%d realisations)", cfg.Model.Name, cfg.Execution.Realisations))

		res, execErr = runner.Run(tuiCtx, work)

		buf.WriteTo(cmd.ErrWriter) //nolint:errcheck
	} else {
		res, execErr = work(ctx, progress.NewLogReporter(ctx))
	}

	if res == nil {
		logger.Error("batch did not start", "error", execErr)
		return cli.Exit(cliExitStr, 1)
	}

	if out := cmd.String(outFlag); out != "" {
		if err := writeResults(out, res); err != nil {
			logger.Error("failed to write results", "file", out, "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		logger.Info("results written", "file", out)
	}

	opts := runbatch.DefaultOutputOptions()
	opts.IncludeStdErr = !cmd.Bool(noOutputStdErrFlag)
	opts.ShowSuccessDetails = cmd.Bool(outputSuccessDetailsFlag)

	if err := res.WriteTextWithOptions(cmd.Writer, opts); err != nil {
		logger.Error("failed to write results", "error", err)
		return cli.Exit(cliExitStr, 1)
	}

	if execErr != nil || res.HasError() {
		logger.Error("some realisations failed, see above for details", "error", execErr)
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

// runBatch runs one batch and writes the extremes directive when inputs were generated.
func runBatch(ctx context.Context, cfg *config.Config, reporter progress.Reporter) (runbatch.Results, error) {
	s, layout, err := newScheduler(cfg, config.FsFactory(), reporter)
	if err != nil {
		return nil, err
	}

	signalbroker.OnDrain(ctx, s.Stop)

	report, err := s.Run(ctx)
	if report == nil {
		return nil, err
	}

	ctxlog.Info(ctx, report.Summary(), "run", report.RunID, "elapsed", report.Elapsed().String())

	if cfg.Execution.Generate && !report.Stopped {
		if derr := inputgen.WriteExtremesDirective(layout, cfg.Execution.Realisations, cfg.Results.Channel); derr != nil {
			ctxlog.Warn(ctx, "extremes directive not written", "error", derr)
		}
	}

	return report.Results(), err
}

func applyOverrides(cfg *config.Config, cmd *cli.Command) {
	if n := cmd.Int(realisationsFlag); n > 0 {
		cfg.Execution.Realisations = n
	}

	if c := cmd.Int(concurrencyFlag); c > 0 {
		cfg.Execution.Concurrency = c
	}

	if cmd.Bool(simulateFlag) {
		cfg.Execution.Simulate = true
	}

	if cmd.Bool(generateOnlyFlag) {
		cfg.Execution.Generate = true
		cfg.Execution.Execute = false
	}

	if cmd.Bool(noGenerateFlag) {
		cfg.Execution.Generate = false
	}
}

func writeResults(path string, res runbatch.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return err //nolint:wrapcheck
	}

	defer f.Close() //nolint:errcheck

	return res.WriteBinary(f) //nolint:wrapcheck
}
