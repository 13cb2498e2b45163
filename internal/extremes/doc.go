// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package extremes reads per-realisation result archives and reduces one
// channel to its maximum and minimum over a sample window.
//
// Archives are zero padded beyond the computed range, so the last valid
// sample is the position of the largest time value rather than the archive
// length.
package extremes
