// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package convergence

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Outcome summarises a tracker against a tolerance.
type Outcome struct {
	Tolerance   float64
	Runs        int
	Reached     bool
	ConvergedAt int
}

// Evaluate computes the outcome for tolerance.
func Evaluate(t *Tracker, tolerance float64) Outcome {
	k, ok := t.ConvergedAt(tolerance)

	return Outcome{
		Tolerance:   tolerance,
		Runs:        t.Len(),
		Reached:     ok,
		ConvergedAt: k,
	}
}

func (o Outcome) String() string {
	switch {
	case o.Tolerance == 0:
		return fmt.Sprintf("Convergence check disabled (tolerance 0) for %d runs", o.Runs)
	case o.Reached:
		return fmt.Sprintf("Convergence tolerance of %g%% reached after %d runs", o.Tolerance, o.ConvergedAt)
	default:
		return fmt.Sprintf("Convergence tolerance of %g%% not reached for number of runs available (%d)", o.Tolerance, o.Runs)
	}
}

var headers = []string{"Sea state", "Mean", "StdDev", "ΔStdDev [%]", "Mean+1StdDev", "Maxima", "Max", "Min"}

// WriteTable renders the entries as a bordered table followed by the outcome.
// The converged row is highlighted.
func WriteTable(w io.Writer, t *Tracker, tolerance float64) error {
	entries := t.Entries()
	outcome := Evaluate(t, tolerance)

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Index),
			num(e.Mean),
			num(e.Std),
			strconv.FormatFloat(e.PctChange, 'f', 2, 64),
			num(e.MeanPlus1Std),
			num(e.AbsMax),
			num(e.Record.Max),
			num(e.Record.Min),
		})
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	highlight := cell.Bold(true).Foreground(lipgloss.Color("10"))

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row >= 0 && row < len(entries) && outcome.Reached && entries[row].Index == outcome.ConvergedAt {
				return highlight
			}

			return cell
		})

	if _, err := fmt.Fprintf(w, "%s\n%s\n", tbl.Render(), outcome); err != nil {
		return err //nolint:wrapcheck
	}

	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
