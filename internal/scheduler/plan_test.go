// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan_Examples(t *testing.T) {
	tests := []struct {
		r, c int
		want [][2]int
	}{
		{7, 3, [][2]int{{1, 3}, {4, 6}, {7, 7}}},
		{6, 3, [][2]int{{1, 3}, {4, 6}}},
		{1, 8, [][2]int{{1, 1}}},
		{5, 1, [][2]int{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("R=%d,C=%d", tt.r, tt.c), func(t *testing.T) {
			p, err := NewPlan(tt.r, tt.c)
			require.NoError(t, err)

			got := make([][2]int, 0, p.Len())
			for _, b := range p.Blocks() {
				got = append(got, [2]int{b.First, b.Last})
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPlan_PartitionProperties(t *testing.T) {
	for r := 1; r <= 40; r++ {
		for c := 1; c <= 12; c++ {
			p, err := NewPlan(r, c)
			require.NoError(t, err)

			blocks := p.Blocks()
			require.Len(t, blocks, (r+c-1)/c, "R=%d C=%d", r, c)

			next := 1

			for i, b := range blocks {
				assert.Equal(t, i+1, b.Number)
				assert.Equal(t, next, b.First, "blocks must be contiguous and ascending")
				assert.LessOrEqual(t, b.Size(), c)
				assert.Equal(t, c, b.Concurrency)

				if i < len(blocks)-1 {
					assert.Equal(t, c, b.Size(), "only the last block may be short")
				}

				next = b.Last + 1
			}

			assert.Equal(t, r+1, next, "blocks must cover 1..R exactly")
		}
	}
}

func TestNewPlan_Invalid(t *testing.T) {
	_, err := NewPlan(0, 3)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = NewPlan(3, 0)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestPlan_BlocksIsACopy(t *testing.T) {
	p, err := NewPlan(4, 2)
	require.NoError(t, err)

	blocks := p.Blocks()
	blocks[0].First = 99

	assert.Equal(t, 1, p.Blocks()[0].First)
}

func TestBlockHelpers(t *testing.T) {
	b := Block{Number: 2, First: 4, Last: 6}
	assert.Equal(t, []int{4, 5, 6}, b.Indices())
	assert.Equal(t, "block 2", b.Label())
	assert.Equal(t, "realisations 4-6", b.Range())
}
