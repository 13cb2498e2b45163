// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name          string
		ctx           context.Context
		expectDefault bool
	}{
		{
			name:          "context without logger",
			ctx:           context.Background(),
			expectDefault: true,
		},
		{
			name:          "context with nil logger value",
			ctx:           context.WithValue(context.Background(), loggerKey{}, nil),
			expectDefault: true,
		},
		{
			name:          "context with wrong type value",
			ctx:           context.WithValue(context.Background(), loggerKey{}, "not a logger"),
			expectDefault: true,
		},
		{
			name:          "context with logger",
			ctx:           New(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
			expectDefault: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := Logger(tt.ctx)
			require.NotNil(t, logger)

			if tt.expectDefault {
				assert.Same(t, DefaultLogger, logger)
			} else {
				assert.NotSame(t, DefaultLogger, logger)
			}
		})
	}
}

func TestNew_NilUsesDefault(t *testing.T) {
	ctx := New(context.Background(), nil)
	assert.Same(t, DefaultLogger, Logger(ctx))
}

func TestLoggingHelpers(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := New(context.Background(), logger)

	tests := []struct {
		name  string
		fn    func(context.Context, string, ...any)
		level string
	}{
		{"debug", Debug, "DEBUG"},
		{"info", Info, "INFO"},
		{"warn", Warn, "WARN"},
		{"error", Error, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn(ctx, "realisation finished", "realisation", 3)

			out := buf.String()
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, "realisation finished")
			assert.Contains(t, out, "realisation=3")
		})
	}
}

func TestNewForTUI(t *testing.T) {
	orig := LevelVar.Level()
	defer LevelVar.Set(orig)

	LevelVar.Set(slog.LevelInfo)

	var buf bytes.Buffer

	ctx := NewForTUI(context.Background(), &buf)
	Info(ctx, "block started", "block", 1)
	Debug(ctx, "hidden")

	assert.Contains(t, buf.String(), "block started")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestLevelFromEnv(t *testing.T) {
	const name = "OBSRUN_TEST_LOG_LEVEL"

	tests := []struct {
		value string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelWarn},
		{"chatty", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(name, tt.value)
			assert.Equal(t, tt.want, levelFromEnv(name))
		})
	}
}
