// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package extremes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Table is an in-memory Archive. Column 0 of a text archive is time; channel
// n is column n.
type Table struct {
	times    []float64
	channels [][]float64
}

// NewTable builds a Table from a time vector and channels 1..len(channels).
func NewTable(times []float64, channels ...[]float64) *Table {
	return &Table{times: times, channels: channels}
}

// Times implements Archive.
func (t *Table) Times() []float64 { return t.times }

// Channel implements Archive.
func (t *Table) Channel(id int) ([]float64, error) {
	if id < 1 || id > len(t.channels) {
		return nil, fmt.Errorf("%w: %d, archive holds channels 1-%d", ErrUnknownChannel, id, len(t.channels))
	}

	return t.channels[id-1], nil
}

// ReadTextArchive reads a whitespace separated archive: one sample per line,
// time first, then one column per channel. Blank lines and lines starting
// with '#' are ignored.
func ReadTextArchive(afs afero.Fs, path string) (*Table, error) {
	f, err := afs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveMissing, path)
		}

		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	t, err := parseTextArchive(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

func parseTextArchive(r io.Reader) (*Table, error) {
	t := &Table{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	width := -1
	line := 0

	for sc.Scan() {
		line++

		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if width < 0 {
			width = len(fields)
			t.channels = make([][]float64, width-1)
		}

		if len(fields) != width {
			return nil, fmt.Errorf("%w: line %d has %d columns, expected %d", ErrArchiveLengthMismatch, line, len(fields), width)
		}

		for col, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, col+1, err)
			}

			if col == 0 {
				t.times = append(t.times, v)
			} else {
				t.channels[col-1] = append(t.channels[col-1], v)
			}
		}
	}

	if err := sc.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if len(t.times) == 0 {
		return nil, ErrArchiveEmpty
	}

	return t, nil
}

// listHeaderLines precede the values in a post-processor extreme list.
const listHeaderLines = 2

// ReadExtremeLists reads the post-processor's max and min lists. After two
// header lines each line holds one realisation: a label, the value and,
// optionally, the time of the extreme. Line k of both files is realisation k.
func ReadExtremeLists(afs afero.Fs, maxPath, minPath string) ([]Record, error) {
	maxes, err := readList(afs, maxPath)
	if err != nil {
		return nil, err
	}

	mins, err := readList(afs, minPath)
	if err != nil {
		return nil, err
	}

	if len(maxes) != len(mins) {
		return nil, fmt.Errorf("%w: %s has %d entries, %s has %d",
			ErrArchiveLengthMismatch, maxPath, len(maxes), minPath, len(mins))
	}

	out := make([]Record, len(maxes))
	for i := range maxes {
		out[i] = Record{
			Max:     maxes[i][0],
			MaxTime: maxes[i][1],
			Min:     mins[i][0],
			MinTime: mins[i][1],
		}
	}

	return out, nil
}

func readList(afs afero.Fs, path string) ([][2]float64, error) {
	data, err := afero.ReadFile(afs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveMissing, path)
		}

		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\n")
	if len(lines) <= listHeaderLines {
		return nil, nil
	}

	out := make([][2]float64, 0, len(lines)-listHeaderLines)

	for n, line := range lines[listHeaderLines:] {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s line %d: expected at least 2 columns, got %d", path, n+listHeaderLines+1, len(fields))
		}

		var entry [2]float64

		for k := range min(2, len(fields)-1) {
			v, err := strconv.ParseFloat(fields[k+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, n+listHeaderLines+1, err)
			}

			entry[k] = v
		}

		out = append(out, entry)
	}

	return out, nil
}
