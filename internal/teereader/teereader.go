// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package teereader

import (
	"io"
	"strings"
	"sync"
)

// maxPartial bounds the unterminated tail kept while waiting for a newline.
const maxPartial = 4096

// LastLineTeeReader copies everything read from reader into dst and tracks the
// last complete line. It is safe for concurrent use.
type LastLineTeeReader struct {
	reader   io.Reader
	dst      io.Writer
	lastLine string
	partial  strings.Builder
	total    int64
	mu       sync.RWMutex
}

// NewLastLineTeeReader wraps r. A nil dst discards the data.
func NewLastLineTeeReader(r io.Reader, dst io.Writer) *LastLineTeeReader {
	if dst == nil {
		dst = io.Discard
	}

	return &LastLineTeeReader{
		reader: r,
		dst:    dst,
	}
}

// Read implements io.Reader. Data is written to the destination before it is returned.
func (lt *LastLineTeeReader) Read(p []byte) (int, error) {
	n, err := lt.reader.Read(p)
	if n > 0 {
		lt.mu.Lock()
		defer lt.mu.Unlock()

		if _, werr := lt.dst.Write(p[:n]); werr != nil {
			return n, werr //nolint:wrapcheck
		}

		lt.total += int64(n)
		lt.track(string(p[:n]))
	}

	return n, err //nolint:wrapcheck
}

// track must be called with the write lock held.
func (lt *LastLineTeeReader) track(data string) {
	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		if lt.partial.Len() < maxPartial {
			lt.partial.WriteString(data)
		}

		return
	}

	head := lt.partial.String() + data[:idx]
	if i := strings.LastIndexByte(head, '\n'); i >= 0 {
		head = head[i+1:]
	}

	lt.lastLine = strings.TrimSuffix(head, "\r")

	lt.partial.Reset()
	lt.partial.WriteString(data[idx+1:])
}

// LastLine returns the last complete line, truncated with "..." when maxLength > 3 and exceeded.
func (lt *LastLineTeeReader) LastLine(maxLength int) string {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	result := lt.lastLine
	if maxLength > 3 && len(result) > maxLength {
		result = result[:maxLength-3] + "..."
	}

	return result
}

// PartialLine returns data received after the last newline.
func (lt *LastLineTeeReader) PartialLine() string {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	return lt.partial.String()
}

// BytesRead is the number of bytes passed through so far.
func (lt *LastLineTeeReader) BytesRead() int64 {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	return lt.total
}
