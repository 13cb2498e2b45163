// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package verify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logWithSentinelAt(sentinel string, fromEnd, total int) string {
	var sb strings.Builder

	for line := 1; line <= total; line++ {
		if line == total-fromEnd+1 {
			sb.WriteString(" *** " + sentinel + " ***\n")
			continue
		}

		fmt.Fprintf(&sb, "step %d converged\n", line)
	}

	return sb.String()
}

func TestVerify_SentinelWindow(t *testing.T) {
	tests := []struct {
		name    string
		check   Check
		fromEnd int
		want    Status
	}{
		{"engine last line", EngineLog, 1, StatusSucceeded},
		{"engine 16th from end", EngineLog, 16, StatusSucceeded},
		{"engine 17th from end", EngineLog, 17, StatusFailed},
		{"postprocessor 17th from end", PostprocessorLog, 17, StatusSucceeded},
		{"postprocessor 18th from end", PostprocessorLog, 18, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			layout := rundir.New(fs, "/m", "pipe")
			content := logWithSentinelAt(tt.check.Sentinel, tt.fromEnd, 40)
			require.NoError(t, afero.WriteFile(fs, tt.check.Path(layout, 2), []byte(content), 0o644))

			got, err := New(layout, tt.check).Verify(2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerify_ShortLogAndNoTrailingNewline(t *testing.T) {
	fs := afero.NewMemMapFs()
	layout := rundir.New(fs, "/m", "pipe")
	require.NoError(t, afero.WriteFile(fs, layout.LogPath(1), []byte("start\nSIMLA successfully completed"), 0o644))

	got, err := New(layout, EngineLog).Verify(1)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got)
}

func TestVerify_MissingSentinelIgnoresExitCode(t *testing.T) {
	fs := afero.NewMemMapFs()
	layout := rundir.New(fs, "/m", "pipe")
	require.NoError(t, afero.WriteFile(fs, layout.LogPath(1), []byte("*** ERROR: singular matrix\n"), 0o644))

	got, err := New(layout, EngineLog).Verify(1)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got)
}

func TestVerify_MissingLog(t *testing.T) {
	layout := rundir.New(afero.NewMemMapFs(), "/m", "pipe")

	got, err := New(layout, EngineLog).Verify(5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailure)
	assert.Contains(t, err.Error(), "realisation 5")
	assert.Contains(t, err.Error(), layout.LogPath(5))
	assert.Equal(t, StatusFailed, got)
}

func TestVerify_Simulate(t *testing.T) {
	layout := rundir.New(afero.NewMemMapFs(), "/m", "pipe")

	got, err := New(layout, EngineLog, WithSimulate(true)).Verify(5)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got)
}

func TestTail(t *testing.T) {
	lines, err := Tail(strings.NewReader("a\nb\r\nc\nd\n"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, lines)

	lines, err = Tail(strings.NewReader("a\nb\n"), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)

	lines, err = Tail(strings.NewReader("a\n"), 0)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "succeeded", StatusSucceeded.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", StatusUnknown.String())
}
