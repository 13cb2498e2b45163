// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package inputgen

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/matt-FFFFFF/obsrun/internal/rundir"
)

// ErrDirective is returned when the extremes directive cannot be written.
var ErrDirective = errors.New("failed to write extremes directive")

const (
	directiveHeader = "#        type   frac   idynres   nmax    time0    -out.txt          dyn\n"
	continuation    = "                                                                    "
)

// WriteExtremesDirective writes the model-level post-processor directive that
// extracts the maximum and minimum of channel for realisations 1..n.
func WriteExtremesDirective(layout *rundir.Layout, n, channel int) error {
	if n < 1 {
		return fmt.Errorf("%w: no realisations", ErrDirective)
	}

	f, err := layout.Fs().Create(layout.DirectivePath())
	if err != nil {
		return errors.Join(ErrDirective, err)
	}

	w := bufio.NewWriter(f)
	werr := writeDirective(w, layout, n, channel)

	if werr == nil {
		werr = w.Flush()
	}

	if err := errors.Join(werr, f.Close()); err != nil {
		return errors.Join(ErrDirective, err)
	}

	return nil
}

func writeDirective(w io.Writer, layout *rundir.Layout, n, channel int) error {
	maxName := strings.TrimSuffix(rundir.MaxListFile, ".txt")
	minName := strings.TrimSuffix(rundir.MinListFile, ".txt")

	for _, kind := range []struct {
		typ  int
		name string
	}{{1, maxName}, {-1, minName}} {
		if _, err := io.WriteString(w, directiveHeader); err != nil {
			return err //nolint:wrapcheck
		}

		if _, err := fmt.Fprintf(w, "MXPLOT   %-6d %.2f   %-9d %-7d %.1f      %q     %q\n",
			kind.typ, 0.0, channel, 1, 0.0, kind.name, layout.ArchiveRef(1)); err != nil {
			return err //nolint:wrapcheck
		}

		for i := 2; i <= n; i++ {
			if _, err := fmt.Fprintf(w, "%s%q\n", continuation, layout.ArchiveRef(i)); err != nil {
				return err //nolint:wrapcheck
			}
		}
	}

	return nil
}
