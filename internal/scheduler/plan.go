// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"fmt"
	"slices"
	"time"
)

// Block is a contiguous range of realisations that run concurrently.
type Block struct {
	Number      int
	First       int
	Last        int
	Concurrency int
	Start       time.Time
	End         time.Time
}

// Size is the number of realisations in the block.
func (b Block) Size() int {
	return b.Last - b.First + 1
}

// Indices lists the realisations in ascending order.
func (b Block) Indices() []int {
	out := make([]int, 0, b.Size())
	for i := b.First; i <= b.Last; i++ {
		out = append(out, i)
	}

	return out
}

// Label is the display name used in events and results.
func (b Block) Label() string {
	return fmt.Sprintf("block %d", b.Number)
}

// Range is a short description such as "realisations 4-6".
func (b Block) Range() string {
	return fmt.Sprintf("realisations %d-%d", b.First, b.Last)
}

// Plan is the immutable partition of 1..R into blocks of at most C.
type Plan struct {
	realisations int
	concurrency  int
	blocks       []Block
}

// NewPlan partitions r realisations into ceil(r/c) blocks. Block n covers
// [(n-1)*c+1, min(n*c, r)].
func NewPlan(r, c int) (*Plan, error) {
	if r < 1 {
		return nil, fmt.Errorf("%w: realisations must be at least 1, got %d", ErrInvalidPlan, r)
	}

	if c < 1 {
		return nil, fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidPlan, c)
	}

	n := (r + c - 1) / c
	p := &Plan{
		realisations: r,
		concurrency:  c,
		blocks:       make([]Block, 0, n),
	}

	for b := 1; b <= n; b++ {
		p.blocks = append(p.blocks, Block{
			Number:      b,
			First:       (b-1)*c + 1,
			Last:        min(b*c, r),
			Concurrency: c,
		})
	}

	return p, nil
}

// Blocks returns a copy of the blocks in execution order.
func (p *Plan) Blocks() []Block {
	return slices.Clone(p.blocks)
}

// Realisations is R.
func (p *Plan) Realisations() int { return p.realisations }

// Concurrency is C.
func (p *Plan) Concurrency() int { return p.concurrency }

// Len is the number of blocks.
func (p *Plan) Len() int { return len(p.blocks) }
