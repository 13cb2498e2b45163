// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package convergence folds per-realisation extremes into running statistics
// and reports where the running standard deviation stopped changing.
package convergence

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/matt-FFFFFF/obsrun/internal/extremes"
)

// ErrOutOfOrder is returned when a realisation index does not exceed the previous one.
var ErrOutOfOrder = errors.New("realisation folded out of order")

// Entry is the running statistics after folding one realisation.
type Entry struct {
	Index        int
	Record       extremes.Record
	AbsMax       float64
	Mean         float64 // Mean of AbsMax over entries 1..k
	Std          float64 // Population std of Mean over entries 1..k
	PctChange    float64 // Change of Std relative to the previous entry, in percent
	MeanPlus1Std float64
}

// Tracker is an append-only sequence of entries. Entry k depends only on the
// records of entries 1..k.
type Tracker struct {
	entries []Entry
	absSum  float64
	means   []float64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Fold appends realisation i, which must be at least 1 and greater than every
// index folded so far.
func (t *Tracker) Fold(i int, rec extremes.Record) (Entry, error) {
	if i < 1 {
		return Entry{}, fmt.Errorf("%w: realisation index %d is below 1", ErrOutOfOrder, i)
	}

	if n := len(t.entries); n > 0 && i <= t.entries[n-1].Index {
		return Entry{}, fmt.Errorf("%w: %d after %d", ErrOutOfOrder, i, t.entries[n-1].Index)
	}

	abs := rec.AbsMax()
	t.absSum += abs
	k := len(t.entries) + 1
	mean := t.absSum / float64(k)
	t.means = append(t.means, mean)

	e := Entry{
		Index:  i,
		Record: rec,
		AbsMax: abs,
		Mean:   mean,
	}

	if k > 1 {
		e.Std = populationStd(t.means)
		e.PctChange = pctChange(t.entries[k-2].Std, e.Std)
	}

	e.MeanPlus1Std = e.Mean + e.Std
	t.entries = append(t.entries, e)

	return e, nil
}

// Entries returns a copy of the entries in fold order.
func (t *Tracker) Entries() []Entry {
	return slices.Clone(t.entries)
}

// Len is the number of folded realisations.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// ConvergedAt returns the realisation index of the first entry after the first
// whose PctChange is below tolerance. A tolerance of zero disables the check.
func (t *Tracker) ConvergedAt(tolerance float64) (int, bool) {
	if tolerance == 0 {
		return 0, false
	}

	for k := 1; k < len(t.entries); k++ {
		if t.entries[k].PctChange < tolerance {
			return t.entries[k].Index, true
		}
	}

	return 0, false
}

// Recompute folds records from scratch. indices[k] is the realisation of records[k].
func Recompute(indices []int, records []extremes.Record) (*Tracker, error) {
	if len(indices) != len(records) {
		return nil, fmt.Errorf("%w: %d indices for %d records", extremes.ErrArchiveLengthMismatch, len(indices), len(records))
	}

	t := NewTracker()

	for k, rec := range records {
		if _, err := t.Fold(indices[k], rec); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Sequential returns 1..n, the indices of a complete batch.
func Sequential(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}

	return out
}

func populationStd(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}

	mean := sum / float64(len(xs))

	var sq float64

	for _, x := range xs {
		d := x - mean
		sq += d * d
	}

	return math.Sqrt(sq / float64(len(xs)))
}

func pctChange(prev, cur float64) float64 {
	switch {
	case prev != 0:
		return 100 * math.Abs(cur-prev) / prev
	case cur != 0:
		return 100
	default:
		return 0
	}
}
