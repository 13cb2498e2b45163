// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"strings"

	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
)

// Sink is the narrow surface a host application exposes for batch progress.
type Sink interface {
	SetProgress(percent int)
	ReportError(message string)
}

type sinkReporter struct {
	sink Sink
}

// NewSinkReporter adapts a Sink into a Reporter. Progress events set the
// percentage and failure events report their message.
func NewSinkReporter(sink Sink) Reporter {
	return &sinkReporter{sink: sink}
}

func (s *sinkReporter) Report(event Event) {
	switch event.Type {
	case EventProgress:
		s.sink.SetProgress(event.Data.Percent)
	case EventFailed:
		msg := event.Message
		if event.Data.Error != nil {
			msg = event.Data.Error.Error()
		}

		s.sink.ReportError(msg)
	}
}

func (s *sinkReporter) Close() {}

// OnEvent implements Listener.
func (s *sinkReporter) OnEvent(event Event) {
	s.Report(event)
}

// NewSinkListener adapts a Sink into a Listener for a ChannelReporter, so that
// slow sinks are fed from the listener goroutine instead of the reporter's caller.
func NewSinkListener(sink Sink) Listener {
	return &sinkReporter{sink: sink}
}

type logReporter struct {
	ctx context.Context
}

// NewLogReporter writes every event to the logger carried by ctx.
func NewLogReporter(ctx context.Context) Reporter {
	return &logReporter{ctx: ctx}
}

func (l *logReporter) Report(event Event) {
	path := strings.Join(event.Path, "/")

	switch event.Type {
	case EventFailed:
		ctxlog.Error(l.ctx, event.Message, "path", path, "exitCode", event.Data.ExitCode, "error", event.Data.Error)
	case EventProgress:
		ctxlog.Info(l.ctx, event.Message, "percent", event.Data.Percent)
	case EventOutput:
		ctxlog.Debug(l.ctx, event.Message, "path", path, "line", event.Data.OutputLine)
	case EventCompleted:
		ctxlog.Info(l.ctx, event.Message, "path", path, "elapsed", event.Data.Elapsed.String())
	default:
		ctxlog.Info(l.ctx, event.Message, "path", path, "type", event.Type.String())
	}
}

func (l *logReporter) Close() {}
