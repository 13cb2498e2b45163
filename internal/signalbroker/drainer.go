// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"sync"
)

type drainerKey struct{}

// Drainer fans the first termination signal out to whatever is running,
// typically a scheduler's Stop. Work registered after Drain runs immediately.
type Drainer struct {
	mu      sync.Mutex
	fns     []func()
	drained bool
}

// NewDrainer returns an empty drainer.
func NewDrainer() *Drainer {
	return &Drainer{}
}

// Register adds fn to the functions called on Drain.
func (d *Drainer) Register(fn func()) {
	d.mu.Lock()

	if d.drained {
		d.mu.Unlock()
		fn()

		return
	}

	d.fns = append(d.fns, fn)
	d.mu.Unlock()
}

// Drain calls every registered function once.
func (d *Drainer) Drain() {
	d.mu.Lock()
	if d.drained {
		d.mu.Unlock()
		return
	}

	d.drained = true
	fns := d.fns
	d.fns = nil
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// WithDrainer stores d in ctx.
func WithDrainer(ctx context.Context, d *Drainer) context.Context {
	return context.WithValue(ctx, drainerKey{}, d)
}

// OnDrain registers fn with the drainer in ctx. Without one, fn is never called.
func OnDrain(ctx context.Context, fn func()) {
	if d, ok := ctx.Value(drainerKey{}).(*Drainer); ok && d != nil {
		d.Register(fn)
	}
}
