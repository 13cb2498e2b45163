// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type loggerKey struct{}

// LevelEnvSuffix is appended to the upper-cased executable name to form the level variable,
// e.g. OBSRUN_LOG_LEVEL.
const LevelEnvSuffix = "_LOG_LEVEL"

// LevelVar is shared by every logger created by this package.
var LevelVar = &slog.LevelVar{}

// DefaultLogger writes pretty, colourised records to stdout.
var DefaultLogger = slog.New(NewPrettyHandler(&slog.HandlerOptions{
	Level: LevelVar,
},
	WithAutoColour(),
	WithDestinationWriter(os.Stdout),
))

func init() {
	LevelVar.Set(levelFromEnv(levelEnvName()))
}

// New returns a child context carrying logger, or DefaultLogger when logger is nil.
func New(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		logger = DefaultLogger
	}

	return context.WithValue(ctx, loggerKey{}, logger)
}

// NewForTUI returns a context whose logger writes plain text to w.
// Use it while a full-screen terminal UI owns stdout.
func NewForTUI(ctx context.Context, w io.Writer) context.Context {
	return New(ctx, slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: LevelVar})))
}

// Logger returns the logger stored in ctx, or DefaultLogger.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok || logger == nil {
		return DefaultLogger
	}

	return logger
}

// Debug logs at debug level using the logger in ctx.
func Debug(ctx context.Context, msg string, args ...any) {
	Logger(ctx).DebugContext(ctx, msg, args...)
}

// Info logs at info level using the logger in ctx.
func Info(ctx context.Context, msg string, args ...any) {
	Logger(ctx).InfoContext(ctx, msg, args...)
}

// Warn logs at warn level using the logger in ctx.
func Warn(ctx context.Context, msg string, args ...any) {
	Logger(ctx).WarnContext(ctx, msg, args...)
}

// Error logs at error level using the logger in ctx.
func Error(ctx context.Context, msg string, args ...any) {
	Logger(ctx).ErrorContext(ctx, msg, args...)
}

func levelEnvName() string {
	exe, _ := os.Executable()
	exe = filepath.Base(exe)
	exe = strings.TrimSuffix(exe, ".exe")

	return strings.ToUpper(exe) + LevelEnvSuffix
}

// levelFromEnv maps the variable to a level; anything unrecognised is WARN.
func levelFromEnv(name string) slog.Level {
	switch strings.ToUpper(os.Getenv(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
