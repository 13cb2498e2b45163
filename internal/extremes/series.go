// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package extremes

import (
	"fmt"
	"math"
)

// DefaultPlotBudget is the largest number of points a series may hold.
const DefaultPlotBudget = 5000

// strideEpsilon absorbs binary rounding in dtRequested/dtNative, e.g. 0.5/0.02.
const strideEpsilon = 1e-9

// PlotBudgetError refuses a series and names the smallest time step that fits.
type PlotBudgetError struct {
	Points      int
	Budget      int
	DtRequested float64
	MinDt       float64
}

func (e *PlotBudgetError) Error() string {
	return fmt.Sprintf("%s: %d points at dt=%g exceed the budget of %d, use dt >= %g",
		ErrPlotBudgetExceeded, e.Points, e.DtRequested, e.Budget, e.MinDt)
}

func (e *PlotBudgetError) Unwrap() error {
	return ErrPlotBudgetExceeded
}

// SeriesResult is a resampled channel with its full-resolution extremes.
type SeriesResult struct {
	Times    []float64
	Values   []float64
	Stride   int
	Extremes Record
}

// Stride is ceil(dtRequested/dtNative), at least 1.
func Stride(dtNative, dtRequested float64) int {
	if dtNative <= 0 || dtRequested <= dtNative {
		return 1
	}

	return max(1, int(math.Ceil(dtRequested/dtNative-strideEpsilon)))
}

// MinDt is the smallest requested step whose stride keeps lastValid+1 samples within budget.
func MinDt(dtNative float64, lastValid, budget int) float64 {
	return dtNative * math.Ceil(float64(lastValid+1)/float64(budget))
}

// Series resamples channel from start with Stride(dtNative, dtRequested) and
// always includes the last valid sample. The strided samples must fit in
// budget; the appended final sample does not count against it. A budget
// below 1 selects DefaultPlotBudget.
func Series(a Archive, channel int, dtNative, dtRequested float64, start, budget int) (*SeriesResult, error) {
	if budget < 1 {
		budget = DefaultPlotBudget
	}

	values, last, err := window(a, channel, start)
	if err != nil {
		return nil, err
	}

	stride := Stride(dtNative, dtRequested)
	strided := (last-start)/stride + 1

	if strided > budget {
		return nil, &PlotBudgetError{
			Points:      strided,
			Budget:      budget,
			DtRequested: dtRequested,
			MinDt:       MinDt(dtNative, last, budget),
		}
	}

	times := a.Times()
	res := &SeriesResult{
		Times:    make([]float64, 0, strided+1),
		Values:   make([]float64, 0, strided+1),
		Stride:   stride,
		Extremes: scan(times, values, start, last),
	}

	i := start
	for ; i <= last; i += stride {
		res.Times = append(res.Times, times[i])
		res.Values = append(res.Values, values[i])
	}

	if i-stride != last {
		res.Times = append(res.Times, times[last])
		res.Values = append(res.Values, values[last])
	}

	return res, nil
}
