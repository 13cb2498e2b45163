// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package series is the `obsrun series` command.
package series

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/cfgfile"
	"github.com/matt-FFFFFF/obsrun/internal/config"
	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/extremes"
	"github.com/urfave/cli/v3"
)

const (
	realisationFlag = "realisation"
	dtFlag          = "dt"
)

// ErrRealisation is returned for a realisation index outside 1..execution.realisations.
var ErrRealisation = errors.New("realisation out of range")

// SeriesCmd writes a downsampled time history of one realisation as CSV.
var SeriesCmd = &cli.Command{
	Name:  "series",
	Usage: "Write the downsampled time history of one realisation as CSV",
	Flags: []cli.Flag{
		cfgfile.Flag,
		&cli.IntFlag{
			Name:    realisationFlag,
			Aliases: []string{"r"},
			Usage:   "Realisation index",
			Value:   1,
		},
		&cli.FloatFlag{
			Name:  dtFlag,
			Usage: "Requested time step of the series; overrides results.plot_dt",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := cfgfile.Load(ctx, cmd)
		if err != nil {
			ctxlog.Error(ctx, "failed to load configuration", "error", err)
			return cli.Exit("", 1)
		}

		if dt := cmd.Float(dtFlag); dt > 0 {
			cfg.Results.PlotDt = dt
		}

		err = Write(cmd.Writer, cfg, cmd.Int(realisationFlag))

		var budget *extremes.PlotBudgetError
		if errors.As(err, &budget) {
			ctxlog.Error(ctx, "too many points", "points", budget.Points, "budget", budget.Budget, "minDt", budget.MinDt)
			return cli.Exit(err.Error(), 1)
		}

		if err != nil {
			ctxlog.Error(ctx, "series failed", "error", err)
			return cli.Exit("", 1)
		}

		return nil
	},
}

// Write validates cfg and renders realisation i as CSV rows of time and value, preceded by a
// comment line holding the full-resolution extremes.
func Write(w io.Writer, cfg *config.Config, i int) error {
	if err := cfg.Validate(); err != nil {
		return err //nolint:wrapcheck
	}

	if i < 1 || i > cfg.Execution.Realisations {
		return fmt.Errorf("%w: realisation %d of %d", ErrRealisation, i, cfg.Execution.Realisations)
	}

	layout := cfg.Layout(config.FsFactory())

	a, err := extremes.ReadTextArchive(layout.Fs(), layout.ArchivePath(i))
	if err != nil {
		return err //nolint:wrapcheck
	}

	res, err := extremes.Series(a, cfg.Results.Channel, cfg.Time.Dt, cfg.Results.PlotDt, cfg.StartSample(), cfg.Results.PlotBudget)
	if err != nil {
		return err //nolint:wrapcheck
	}

	ex := res.Extremes
	if _, err := fmt.Fprintf(w, "# realisation %d stride %d max %g at %g min %g at %g\n",
		i, res.Stride, ex.Max, ex.MaxTime, ex.Min, ex.MinTime); err != nil {
		return err //nolint:wrapcheck
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "value"}); err != nil {
		return err //nolint:wrapcheck
	}

	for k := range res.Times {
		row := []string{
			strconv.FormatFloat(res.Times[k], 'g', -1, 64),
			strconv.FormatFloat(res.Values[k], 'g', -1, 64),
		}

		if err := cw.Write(row); err != nil {
			return err //nolint:wrapcheck
		}
	}

	cw.Flush()

	return cw.Error() //nolint:wrapcheck
}
