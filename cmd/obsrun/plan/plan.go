// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package plan is the `obsrun plan` command.
package plan

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/cfgfile"
	"github.com/matt-FFFFFF/obsrun/internal/config"
	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/inputgen"
	"github.com/matt-FFFFFF/obsrun/internal/scheduler"
	"github.com/urfave/cli/v3"
)

// PlanCmd prints the block partition without running anything.
var PlanCmd = &cli.Command{
	Name:  "plan",
	Usage: "Show how the realisations are split into blocks",
	Flags: []cli.Flag{cfgfile.Flag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := cfgfile.Load(ctx, cmd)
		if err != nil {
			ctxlog.Error(ctx, "failed to load configuration", "error", err)
			return cli.Exit("", 1)
		}

		if err := cfg.Validate(); err != nil {
			ctxlog.Error(ctx, "invalid configuration", "error", err)
			return cli.Exit("", 1)
		}

		if err := Write(cmd.Writer, cfg); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		return nil
	},
}

// Write renders the plan of cfg.
func Write(w io.Writer, cfg *config.Config) error {
	p, err := scheduler.NewPlan(cfg.Execution.Realisations, cfg.Execution.Concurrency)
	if err != nil {
		return err //nolint:wrapcheck
	}

	seeds := inputgen.Seeds(cfg.Input.BaseSeed, cfg.Execution.Realisations)
	layout := cfg.Layout(config.FsFactory())

	rows := make([][]string, 0, p.Len())
	for _, b := range p.Blocks() {
		first, last := seeds[b.First-1], seeds[b.Last-1]
		rows = append(rows, []string{
			strconv.Itoa(b.Number),
			b.Range(),
			strconv.Itoa(b.Size()),
			fmt.Sprintf("%d .. %d", first, last),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Block", "Realisations", "Processes", "Seeds").
		Rows(rows...)

	_, err = fmt.Fprintf(w, "Model directory: %s\nEngine steps:    %d\nBlocks:          %d of at most %d processes\n%s\n",
		layout.Root(), cfg.Time.StepCount(), p.Len(), p.Concurrency(), tbl.Render())

	return err //nolint:wrapcheck
}
