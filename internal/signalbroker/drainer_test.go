// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrainer(t *testing.T) {
	d := NewDrainer()
	ctx := WithDrainer(context.Background(), d)

	calls := 0
	OnDrain(ctx, func() { calls++ })

	d.Drain()
	d.Drain()
	assert.Equal(t, 1, calls)

	OnDrain(ctx, func() { calls++ })
	assert.Equal(t, 2, calls, "late registrations run at once")
}

func TestOnDrain_NoDrainer(t *testing.T) {
	OnDrain(context.Background(), func() { t.Fatal("must not be called") })
}
