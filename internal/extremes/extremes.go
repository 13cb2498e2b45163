// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package extremes

import (
	"errors"
	"fmt"
	"math"
)

// ChannelLateralDisplacement is the archive channel holding lateral displacement.
const ChannelLateralDisplacement = 5

var (
	// ErrArchiveMissing is returned when an archive or extreme list does not exist.
	ErrArchiveMissing = errors.New("result archive missing")
	// ErrArchiveLengthMismatch is returned when parallel vectors disagree in length.
	ErrArchiveLengthMismatch = errors.New("result archive length mismatch")
	// ErrArchiveEmpty is returned for an archive without samples.
	ErrArchiveEmpty = errors.New("result archive has no samples")
	// ErrUnknownChannel is returned for a channel the archive does not hold.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrWindow is returned when the start index lies outside the valid samples.
	ErrWindow = errors.New("start index outside valid samples")
	// ErrPlotBudgetExceeded is returned when a series would exceed the point budget.
	ErrPlotBudgetExceeded = errors.New("plot point budget exceeded")
	// ErrNoRealisations is returned when asked to collect fewer than one realisation.
	ErrNoRealisations = errors.New("no realisations to collect")
)

// Archive is a realisation's time history: one time vector and a table of
// channels sampled at those times.
type Archive interface {
	Times() []float64
	Channel(id int) ([]float64, error)
}

// Record holds the extremes of one channel over one window.
type Record struct {
	Max     float64
	MaxTime float64
	Min     float64
	MinTime float64
}

// AbsMax is max(|Max|, |Min|).
func (r Record) AbsMax() float64 {
	return math.Max(math.Abs(r.Max), math.Abs(r.Min))
}

// LastValidSampleIndex returns the first index holding the largest time value.
func LastValidSampleIndex(a Archive) (int, error) {
	t := a.Times()
	if len(t) == 0 {
		return 0, ErrArchiveEmpty
	}

	idx := 0

	for i, v := range t {
		if v > t[idx] {
			idx = i
		}
	}

	return idx, nil
}

// Extremes scans [start, LastValidSampleIndex] inclusive. Ties keep the earliest sample.
func Extremes(a Archive, channel, start int) (Record, error) {
	values, last, err := window(a, channel, start)
	if err != nil {
		return Record{}, err
	}

	return scan(a.Times(), values, start, last), nil
}

// scan finds the extremes over [start, last].
func scan(times, values []float64, start, last int) Record {
	r := Record{
		Max:     values[start],
		MaxTime: times[start],
		Min:     values[start],
		MinTime: times[start],
	}

	for i := start + 1; i <= last; i++ {
		if values[i] > r.Max {
			r.Max, r.MaxTime = values[i], times[i]
		}

		if values[i] < r.Min {
			r.Min, r.MinTime = values[i], times[i]
		}
	}

	return r
}

// window validates the request and returns the channel values and last valid index.
func window(a Archive, channel, start int) ([]float64, int, error) {
	last, err := LastValidSampleIndex(a)
	if err != nil {
		return nil, 0, err
	}

	values, err := a.Channel(channel)
	if err != nil {
		return nil, 0, err
	}

	if len(values) != len(a.Times()) {
		return nil, 0, fmt.Errorf("%w: channel %d has %d samples, time vector has %d",
			ErrArchiveLengthMismatch, channel, len(values), len(a.Times()))
	}

	if start < 0 || start > last {
		return nil, 0, fmt.Errorf("%w: start %d, last valid sample %d", ErrWindow, start, last)
	}

	return values, last, nil
}
