// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Code is an ANSI SGR parameter.
type Code int

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	ForceColor = "FORCE_COLOR"

	prefix = "\033["
	suffix = "m"
	reset  = "\033[0m"
)

// Text attributes.
const (
	Reset Code = 0
	Bold  Code = 1
	Faint Code = 2
)

// Foreground colors.
const (
	FgRed     Code = 31
	FgGreen   Code = 32
	FgYellow  Code = 33
	FgBlue    Code = 34
	FgMagenta Code = 35
	FgCyan    Code = 36
	FgWhite   Code = 37

	FgHiRed     Code = 91
	FgHiMagenta Code = 95
	FgHiWhite   Code = 97
)

var enabled = isColorCapable()

// Enabled reports whether ANSI output is enabled for this process.
// NO_COLOR always wins, FORCE_COLOR forces color on, otherwise stdout must be a terminal.
func Enabled() bool {
	return enabled
}

// SetEnabled overrides terminal detection, e.g. when output is redirected to a file.
func SetEnabled(v bool) {
	enabled = v
}

// ControlString renders the escape sequence for the given codes, or "" when color is disabled.
func ControlString(codes ...Code) string {
	if !enabled {
		return ""
	}

	return sequence(codes)
}

// Colorize wraps str in the given codes followed by a reset.
func Colorize(str string, codes ...Code) string {
	if !enabled {
		return str
	}

	return sequence(codes) + str + reset
}

// ColorizeNoReset wraps str in the given codes without a trailing reset.
func ColorizeNoReset(str string, codes ...Code) string {
	if !enabled {
		return str
	}

	return sequence(codes) + str
}

func sequence(codes []Code) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(int(c))
	}

	return prefix + strings.Join(parts, ";") + suffix
}

func isColorCapable() bool {
	if os.Getenv(NoColor) != "" {
		return false
	}

	if os.Getenv(ForceColor) != "" {
		return true
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}
