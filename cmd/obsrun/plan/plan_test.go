// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"bytes"
	"testing"

	"github.com/matt-FFFFFF/obsrun/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	cfg := config.Default()
	cfg.Execution.Realisations = 7
	cfg.Execution.Concurrency = 1

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))

	out := buf.String()
	assert.Contains(t, out, "Engine steps:    27501")
	assert.Contains(t, out, "Blocks:          7 of at most 1 processes")
	assert.Contains(t, out, "realisations 7-7")
}
