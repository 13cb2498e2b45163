// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
)

// ChannelReporter implements Reporter using a buffered channel.
// Events are dropped when the buffer is full or the reporter is closed.
type ChannelReporter struct {
	ch     chan Event
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

// NewChannelReporter creates a ChannelReporter with the given buffer size.
func NewChannelReporter(ctx context.Context, bufferSize int) *ChannelReporter {
	reporterCtx, cancel := context.WithCancel(ctx)

	return &ChannelReporter{
		ch:     make(chan Event, bufferSize),
		ctx:    reporterCtx,
		cancel: cancel,
	}
}

// Report implements Reporter.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.closed {
		return
	}

	select {
	case cr.ch <- event:
	case <-cr.ctx.Done():
	default:
	}
}

// Close implements Reporter. Buffered events are delivered to a listener
// started with Listen before Close returns.
func (cr *ChannelReporter) Close() {
	cr.once.Do(func() {
		cr.mu.Lock()
		cr.closed = true
		close(cr.ch)
		cr.mu.Unlock()

		cr.wg.Wait()
		cr.cancel()
	})
}

// Listen forwards events to listener on a separate goroutine until the reporter
// is closed or its context is cancelled.
func (cr *ChannelReporter) Listen(listener Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for {
			select {
			case event, ok := <-cr.ch:
				if !ok {
					return
				}

				listener.OnEvent(event)
			case <-cr.ctx.Done():
				return
			}
		}
	}()
}

// Events returns the underlying channel for manual consumption.
func (cr *ChannelReporter) Events() <-chan Event {
	return cr.ch
}

// Context returns the reporter's context, cancelled once the reporter is closed.
func (cr *ChannelReporter) Context() context.Context {
	return cr.ctx
}

// ChildReporter prefixes event paths before handing them to a parent.
type ChildReporter struct {
	parent Reporter
	prefix []string
}

// NewChildReporter creates a child reporter. A nil parent yields a NullReporter.
func NewChildReporter(parent Reporter, prefix ...string) Reporter {
	if parent == nil {
		return NullReporter{}
	}

	return &ChildReporter{
		parent: parent,
		prefix: prefix,
	}
}

// Report implements Reporter.
func (cr *ChildReporter) Report(event Event) {
	full := make([]string, 0, len(cr.prefix)+len(event.Path))
	full = append(full, cr.prefix...)
	full = append(full, event.Path...)
	event.Path = full

	cr.parent.Report(event)
}

// Close does nothing; the parent may be shared with other children.
func (cr *ChildReporter) Close() {}

// MultiReporter fans an event out to several reporters.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(event Event) {
	for _, r := range m {
		r.Report(event)
	}
}

// Close implements Reporter.
func (m MultiReporter) Close() {
	for _, r := range m {
		r.Close()
	}
}
