// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matt-FFFFFF/obsrun/internal/color"
)

// OutputOptions controls what is included in the output.
type OutputOptions struct {
	IncludeStdOut      bool // Whether to include the captured output tail
	IncludeStdErr      bool // Whether to include stderr
	ShowSuccessDetails bool // Whether to show details for successful nodes
}

// DefaultOutputOptions returns a default set of output options.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		IncludeStdOut:      false,
		IncludeStdErr:      true,
		ShowSuccessDetails: false,
	}
}

func writeTextResults(w io.Writer, results Results, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	if _, err := io.WriteString(w, "===== Results =====\n\n"); err != nil {
		return err //nolint:wrapcheck
	}

	for _, r := range results {
		if err := writeResultWithIndent(w, r, "", options); err != nil {
			return err
		}
	}

	return nil
}

func writeResultWithIndent(w io.Writer, r *Result, indent string, options *OutputOptions) error {
	var statusStr, labelPrefix string

	switch r.Status {
	case ResultStatusSkipped:
		statusStr = color.Colorize("~", color.FgYellow)
		labelPrefix = color.ControlString(color.Bold, color.FgYellow)
	case ResultStatusError:
		statusStr = color.Colorize("✗", color.FgRed)
		labelPrefix = color.ControlString(color.Bold, color.FgRed)
	case ResultStatusSuccess:
		statusStr = color.Colorize("✓", color.FgGreen)
		labelPrefix = color.ControlString(color.Bold, color.FgGreen)
	default:
		statusStr = color.Colorize("?", color.FgWhite)
	}

	label := r.Label
	if label == "" {
		label = "[unnamed]"
	}

	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%s%s %s%s%s", indent, statusStr, labelPrefix, label, color.ControlString(color.Reset))

	if r.Detail != "" {
		fmt.Fprintf(&sb, " %s", color.Colorize(r.Detail, color.Faint))
	}

	if r.Elapsed > 0 {
		fmt.Fprintf(&sb, " [%s]", r.Elapsed.Round(time.Second))
	}

	if r.ExitCode != 0 {
		fmt.Fprintf(&sb, " (exit code: %d)", r.ExitCode)
	}

	sb.WriteString("\n")

	if r.Error != "" {
		errColor := color.FgWhite

		switch r.Status {
		case ResultStatusSkipped:
			errColor = color.FgYellow
		case ResultStatusError:
			errColor = color.FgRed
		}

		fmt.Fprintf(&sb, "%s  %s %s%s\n",
			indent,
			color.ColorizeNoReset("➜ Error:", errColor),
			r.Error,
			color.ControlString(color.Reset),
		)
	}

	showDetails := (r.Status == ResultStatusError || options.ShowSuccessDetails) && len(r.Children) == 0

	if showDetails && options.IncludeStdOut && len(r.StdOut) > 0 {
		fmt.Fprintf(&sb, "%s  ➜ Output:\n", indent)
		sb.WriteString(formatOutput(r.StdOut, indent+"     "))
	}

	if showDetails && options.IncludeStdErr && len(r.StdErr) > 0 {
		fmt.Fprintf(&sb, "%s  %s\n", indent, color.Colorize("➜ Error Output:", color.FgHiRed))
		sb.WriteString(formatOutput(r.StdErr, indent+"     "))
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err //nolint:wrapcheck
	}

	for _, child := range r.Children {
		if err := writeResultWithIndent(w, child, indent+"  ", options); err != nil {
			return err
		}
	}

	return nil
}

// formatOutput indents every non-empty line of output.
func formatOutput(output []byte, indent string) string {
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	sb := strings.Builder{}
	sb.Grow(len(output) + len(lines)*len(indent))

	for _, line := range lines {
		if line == "" {
			sb.WriteString("\n")
			continue
		}

		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}
