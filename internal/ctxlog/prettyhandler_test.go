// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPretty(buf *bytes.Buffer, opts ...Option) *slog.Logger {
	opts = append(opts, WithDestinationWriter(buf))

	return slog.New(NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelDebug}, opts...))
}

func TestPrettyHandler_Format(t *testing.T) {
	var buf bytes.Buffer

	logger := newTestPretty(&buf)
	logger.Info("block finished", "block", 2, "elapsed", "12s")

	out := buf.String()
	assert.Contains(t, out, "INFO:")
	assert.Contains(t, out, "block finished")
	assert.Contains(t, out, `"block": 2`)
	assert.Contains(t, out, `"elapsed": "12s"`)
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.NotContains(t, out, `"msg"`, "builtin keys must not be repeated in attributes")
}

func TestPrettyHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer

	newTestPretty(&buf).Warn("nothing attached")
	assert.NotContains(t, buf.String(), "{")

	buf.Reset()
	newTestPretty(&buf, WithOutputEmptyAttrs()).Warn("nothing attached")
	assert.Contains(t, buf.String(), "{}")
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer

	logger := newTestPretty(&buf).With("runID", "abc").WithGroup("run")
	logger.Info("launched", "realisation", 7)

	out := buf.String()
	assert.Contains(t, out, `"runID": "abc"`)
	assert.Contains(t, out, `"run": {`)
	assert.Contains(t, out, `"realisation": 7`)
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelWarn}, WithDestinationWriter(&buf))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestPrettyHandler_WriteError(t *testing.T) {
	h := NewPrettyHandler(nil, WithDestinationWriter(failingWriter{}))
	r := slog.Record{Level: slog.LevelError, Message: "boom"}

	err := h.Handle(context.Background(), r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIoWrite)
}

func TestPrettyHandler_Concurrent(t *testing.T) {
	var buf safeBuffer

	logger := slog.New(NewPrettyHandler(nil, WithDestinationWriter(&buf)))

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			logger.Warn("realisation done", "realisation", i)
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 20, strings.Count(buf.String(), "realisation done"))
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
