// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package inputgen

import "math/rand/v2"

const (
	// MinSeed is the smallest wave seed handed to the engine.
	MinSeed = 10000
	// MaxSeed is the largest wave seed handed to the engine.
	MaxSeed = 10000000
)

// Seeds returns n wave seeds in [MinSeed, MaxSeed]. The same base always yields the same list,
// and a longer list extends a shorter one.
func Seeds(base uint64, n int) []int {
	rng := rand.New(rand.NewPCG(base, base^0x9e3779b97f4a7c15)) //nolint:gosec
	out := make([]int, n)

	for i := range out {
		out[i] = MinSeed + rng.IntN(MaxSeed-MinSeed+1)
	}

	return out
}
