// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event is a single update emitted during a batch.
type Event struct {
	Path      []string  // Hierarchical path, e.g. ["block 2", "r7"]
	Type      EventType // What happened
	Message   string    // Human-readable status message
	Timestamp time.Time // When the event occurred
	Data      EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStarted indicates a block or realisation has begun.
	EventStarted EventType = iota
	// EventProgress carries an updated overall percentage.
	EventProgress
	// EventOutput indicates new worker output is available.
	EventOutput
	// EventCompleted indicates successful completion.
	EventCompleted
	// EventFailed indicates failure.
	EventFailed
	// EventSkipped indicates the item was never launched.
	EventSkipped
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventOutput:
		return "output"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// EventData contains type-specific information for progress events.
type EventData struct {
	// For EventOutput
	OutputLine string

	// For EventCompleted/EventFailed
	ExitCode int
	Error    error
	Elapsed  time.Duration

	// For EventProgress, 0..100
	Percent int
}

// Reporter is the interface for sending progress events.
type Reporter interface {
	// Report sends an event. Implementations must not block.
	Report(event Event)
	// Close signals that no more events will be sent.
	Close()
}

// Listener receives events forwarded by a ChannelReporter.
type Listener interface {
	OnEvent(event Event)
}

// NullReporter discards everything.
type NullReporter struct{}

// Report implements Reporter.
func (NullReporter) Report(Event) {}

// Close implements Reporter.
func (NullReporter) Close() {}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return NullReporter{}
}
