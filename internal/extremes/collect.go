// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package extremes

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"golang.org/x/sync/errgroup"
)

// Collect reads the archives of realisations 1..n in parallel, at most limit
// at a time, and returns their extremes in index order. Any missing or
// malformed archive fails the whole call.
func Collect(ctx context.Context, layout *rundir.Layout, n, channel, start, limit int) ([]Record, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoRealisations, n)
	}

	if limit < 1 {
		limit = 1
	}

	out := make([]Record, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 1; i <= n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err //nolint:wrapcheck
			}

			path := layout.ArchivePath(i)

			a, err := ReadTextArchive(layout.Fs(), path)
			if err != nil {
				return fmt.Errorf("realisation %d: %w", i, err)
			}

			rec, err := Extremes(a, channel, start)
			if err != nil {
				return fmt.Errorf("realisation %d: %s: %w", i, path, err)
			}

			ctxlog.Debug(ctx, "extremes read", "realisation", i, "max", rec.Max, "min", rec.Min)
			out[i-1] = rec

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return out, nil
}
