// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/TylerBrock/colorjson"
	"github.com/matt-FFFFFF/obsrun/internal/color"
	"golang.org/x/term"
)

var (
	// ErrMarshalAttribute is returned when record attributes cannot be rendered.
	ErrMarshalAttribute = errors.New("error when marshaling attribute")
	// ErrIoWrite is returned when the destination writer fails.
	ErrIoWrite = errors.New("error when writing to output")
)

// TimeFormat is used for record timestamps and for console status lines.
const TimeFormat = "[15:04:05.000]"

// PrettyHandler renders records as "time level message {attrs}" with the attributes
// pretty-printed as JSON. Attributes are produced by an inner JSON handler so that
// groups and WithAttrs behave exactly like slog's own handlers.
type PrettyHandler struct {
	inner            slog.Handler
	buf              *bytes.Buffer
	mu               *sync.Mutex
	writer           io.Writer
	colour           bool
	outputEmptyAttrs bool
}

// Option configures a PrettyHandler.
type Option func(h *PrettyHandler)

// WithDestinationWriter sets where records are written. Defaults to stderr.
func WithDestinationWriter(w io.Writer) Option {
	return func(h *PrettyHandler) {
		h.writer = w
	}
}

// WithColour forces colour output.
func WithColour() Option {
	return func(h *PrettyHandler) {
		h.colour = true
	}
}

// WithAutoColour enables colour when the color package does.
func WithAutoColour() Option {
	return func(h *PrettyHandler) {
		h.colour = color.Enabled()
	}
}

// WithOutputEmptyAttrs prints "{}" for records without attributes.
func WithOutputEmptyAttrs() Option {
	return func(h *PrettyHandler) {
		h.outputEmptyAttrs = true
	}
}

// NewPrettyHandler creates a PrettyHandler. A nil handlerOptions is allowed.
func NewPrettyHandler(handlerOptions *slog.HandlerOptions, options ...Option) *PrettyHandler {
	if handlerOptions == nil {
		handlerOptions = &slog.HandlerOptions{}
	}

	buf := &bytes.Buffer{}
	h := &PrettyHandler{
		buf: buf,
		inner: slog.NewJSONHandler(buf, &slog.HandlerOptions{
			Level:       handlerOptions.Level,
			AddSource:   handlerOptions.AddSource,
			ReplaceAttr: dropBuiltins(handlerOptions.ReplaceAttr),
		}),
		mu:     &sync.Mutex{},
		writer: os.Stderr,
	}

	for _, opt := range options {
		opt(h)
	}

	return h
}

// Enabled implements slog.Handler.
func (h *PrettyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// WithAttrs implements slog.Handler.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.inner = h.inner.WithAttrs(attrs)

	return &c
}

// WithGroup implements slog.Handler.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.inner = h.inner.WithGroup(name)

	return &c
}

// Handle implements slog.Handler.
func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs, err := h.attrs(ctx, r)
	if err != nil {
		return err
	}

	var rendered []byte

	if h.outputEmptyAttrs || len(attrs) > 0 {
		f := colorjson.NewFormatter()
		f.Indent = 2
		f.DisabledColor = !h.colour || !term.IsTerminal(int(os.Stdout.Fd()))

		rendered, err = f.Marshal(attrs)
		if err != nil {
			return errors.Join(ErrMarshalAttribute, err)
		}
	}

	sb := strings.Builder{}
	sb.WriteString(h.paint(r.Time.Format(TimeFormat), color.FgWhite))
	sb.WriteString(" ")
	sb.WriteString(h.paint(r.Level.String()+":", levelColour(r.Level)))
	sb.WriteString(" ")
	sb.WriteString(h.paint(r.Message, color.FgHiWhite))

	if len(rendered) > 0 {
		sb.WriteString(" ")
		sb.Write(rendered)
	}

	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := io.WriteString(h.writer, sb.String()); err != nil {
		return errors.Join(ErrIoWrite, err)
	}

	return nil
}

// attrs runs the inner JSON handler and decodes its output back into a map.
func (h *PrettyHandler) attrs(ctx context.Context, r slog.Record) (map[string]any, error) {
	h.mu.Lock()
	defer func() {
		h.buf.Reset()
		h.mu.Unlock()
	}()

	if err := h.inner.Handle(ctx, r); err != nil {
		return nil, fmt.Errorf("error when calling inner handler's Handle: %w", err)
	}

	var attrs map[string]any
	if err := json.Unmarshal(h.buf.Bytes(), &attrs); err != nil {
		return nil, fmt.Errorf("error when unmarshaling inner handler's Handle result: %w", err)
	}

	return attrs, nil
}

func (h *PrettyHandler) paint(s string, c color.Code) string {
	if !h.colour {
		return s
	}

	return color.Colorize(s, c)
}

func levelColour(l slog.Level) color.Code {
	switch {
	case l <= slog.LevelDebug:
		return color.FgWhite
	case l <= slog.LevelInfo:
		return color.FgCyan
	case l < slog.LevelError:
		return color.FgYellow
	case l == slog.LevelError:
		return color.FgRed
	default:
		return color.FgHiMagenta
	}
}

// dropBuiltins removes time, level and message from the inner handler output;
// the pretty handler renders those itself.
func dropBuiltins(next func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey) {
			return slog.Attr{}
		}

		if next == nil {
			return a
		}

		return next(groups, a)
	}
}
