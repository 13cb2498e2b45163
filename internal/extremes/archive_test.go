// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package extremes

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sampleArchive = `# time ch1 ch2 ch3 ch4 ch5
0.00  0 0 0 0  0.000
0.02  0 0 0 0  0.013
0.04  0 0 0 0 -0.021

0.06  0 0 0 0  0.008
0.00  0 0 0 0  0.000
`

func TestReadTextArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r1/s.txt", []byte(sampleArchive), 0o644))

	a, err := ReadTextArchive(fs, "/r1/s.txt")
	require.NoError(t, err)
	assert.Len(t, a.Times(), 5)

	rec, err := Extremes(a, ChannelLateralDisplacement, 0)
	require.NoError(t, err)
	assert.Equal(t, Record{Max: 0.013, MaxTime: 0.02, Min: -0.021, MinTime: 0.04}, rec)
}

func TestReadTextArchive_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := ReadTextArchive(fs, "/missing.txt")
	assert.ErrorIs(t, err, ErrArchiveMissing)
	assert.Contains(t, err.Error(), "/missing.txt")

	require.NoError(t, afero.WriteFile(fs, "/ragged.txt", []byte("0 1 2\n0.1 1\n"), 0o644))
	_, err = ReadTextArchive(fs, "/ragged.txt")
	assert.ErrorIs(t, err, ErrArchiveLengthMismatch)
	assert.Contains(t, err.Error(), "line 2 has 2 columns, expected 3")

	require.NoError(t, afero.WriteFile(fs, "/empty.txt", []byte("# header only\n"), 0o644))
	_, err = ReadTextArchive(fs, "/empty.txt")
	assert.ErrorIs(t, err, ErrArchiveEmpty)

	require.NoError(t, afero.WriteFile(fs, "/bad.txt", []byte("0 x\n"), 0o644))
	_, err = ReadTextArchive(fs, "/bad.txt")
	assert.Error(t, err)
}

func TestReadExtremeLists(t *testing.T) {
	fs := afero.NewMemMapFs()
	maxList := "EXTREME VALUES disp-uy-max\n  run   value   time\nr1/s  0.52  310.4\nr2/s  0.61  122.0\nr3/s  0.40  95.5\n"
	minList := "EXTREME VALUES disp-uy-min\n  run   value   time\nr1/s -0.70  12.0\nr2/s -0.20  400.1\nr3/s -0.45  33.3\n"

	require.NoError(t, afero.WriteFile(fs, "/m/disp-uy-max.txt", []byte(maxList), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/m/disp-uy-min.txt", []byte(minList), 0o644))

	recs, err := ReadExtremeLists(fs, "/m/disp-uy-max.txt", "/m/disp-uy-min.txt")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, Record{Max: 0.52, MaxTime: 310.4, Min: -0.70, MinTime: 12.0}, recs[0])
	assert.InDelta(t, 0.70, recs[0].AbsMax(), 1e-12)
	assert.InDelta(t, 0.61, recs[1].AbsMax(), 1e-12)
}

func TestReadExtremeLists_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/max.txt", []byte("h\nh\nr1 1\nr2 2\n"), 0o644))

	_, err := ReadExtremeLists(fs, "/max.txt", "/min.txt")
	assert.ErrorIs(t, err, ErrArchiveMissing)

	require.NoError(t, afero.WriteFile(fs, "/min.txt", []byte("h\nh\nr1 -1\n"), 0o644))
	_, err = ReadExtremeLists(fs, "/max.txt", "/min.txt")
	assert.ErrorIs(t, err, ErrArchiveLengthMismatch)
	assert.Contains(t, err.Error(), "has 2 entries")
}

func writeArchive(t *testing.T, fs afero.Fs, path string, peak float64) {
	t.Helper()

	var sb strings.Builder
	for i := range 20 {
		v := 0.0
		if i == 7 {
			v = peak
		}

		fmt.Fprintf(&sb, "%g 0 0 0 0 %g\n", float64(i)*0.02, v)
	}

	require.NoError(t, afero.WriteFile(fs, path, []byte(sb.String()), 0o644))
}

func TestCollect_InIndexOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	layout := rundir.New(fs, "/models", "pipe")

	for i := 1; i <= 9; i++ {
		writeArchive(t, fs, layout.ArchivePath(i), float64(i)/10)
	}

	recs, err := Collect(context.Background(), layout, 9, ChannelLateralDisplacement, 0, 3)
	require.NoError(t, err)
	require.Len(t, recs, 9)

	for i, r := range recs {
		assert.InDelta(t, float64(i+1)/10, r.Max, 1e-12)
		assert.InDelta(t, 0.14, r.MaxTime, 1e-12)
	}
}

func TestCollect_MissingArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	layout := rundir.New(fs, "/models", "pipe")
	writeArchive(t, fs, layout.ArchivePath(1), 1)

	_, err := Collect(context.Background(), layout, 2, ChannelLateralDisplacement, 0, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArchiveMissing)
	assert.Contains(t, err.Error(), "realisation 2")
}

func TestCollect_NoRealisations(t *testing.T) {
	layout := rundir.New(afero.NewMemMapFs(), "/models", "pipe")

	for _, n := range []int{0, -1} {
		recs, err := Collect(context.Background(), layout, n, ChannelLateralDisplacement, 0, 4)
		require.ErrorIs(t, err, ErrNoRealisations)
		assert.Nil(t, recs)
	}
}
