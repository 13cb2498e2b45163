// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"io"
	"os"
	"slices"
	"time"
)

// ResultStatus is the outcome of a node in the result tree.
type ResultStatus int

const (
	// ResultStatusUnknown is the zero value.
	ResultStatusUnknown ResultStatus = iota
	// ResultStatusSuccess means the node and all children succeeded.
	ResultStatusSuccess
	// ResultStatusError means the node or one of its children failed.
	ResultStatusError
	// ResultStatusSkipped means the node never ran.
	ResultStatusSkipped
)

func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "success"
	case ResultStatusError:
		return "error"
	case ResultStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is one node of a batch report: the batch, a block or a realisation.
// Errors are stored as text so that the tree can be persisted and re-rendered.
type Result struct {
	Label    string        // Label of the node
	Status   ResultStatus  // Outcome
	ExitCode int           // Worker exit code, leaves only
	Error    string        // Error text, if any
	Detail   string        // Short extra information, e.g. the realisation range of a block
	StdOut   []byte        // Tail of worker output
	StdErr   []byte        // Worker error output
	Elapsed  time.Duration // Wall-clock time
	Children Results       // Nested results
}

// Results is a slice of Result pointers.
type Results []*Result

// HasError reports whether any node in the tree failed.
func (r Results) HasError() bool {
	for v := range slices.Values(r) {
		if v.Status == ResultStatusError || v.Error != "" {
			return true
		}

		if v.Children.HasError() {
			return true
		}
	}

	return false
}

// Leaves returns the number of leaf nodes per status.
func (r Results) Leaves() map[ResultStatus]int {
	counts := make(map[ResultStatus]int)

	var walk func(Results)

	walk = func(rs Results) {
		for _, v := range rs {
			if len(v.Children) == 0 {
				counts[v.Status]++
				continue
			}

			walk(v.Children)
		}
	}

	walk(r)

	return counts
}

// Print writes the results to stdout with default options.
func (r Results) Print() error {
	return r.WriteTextWithOptions(os.Stdout, nil)
}

// WriteText writes the results to w with default options.
func (r Results) WriteText(w io.Writer) error {
	return r.WriteTextWithOptions(w, nil)
}

// WriteTextWithOptions writes the results to w.
func (r Results) WriteTextWithOptions(w io.Writer, options *OutputOptions) error {
	return writeTextResults(w, r, options)
}

// WriteBinary persists the results in gob format.
func (r Results) WriteBinary(w io.Writer) error {
	return writeResultGob(w, r)
}
