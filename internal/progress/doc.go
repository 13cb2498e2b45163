// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries real-time progress events from the block scheduler
// to whoever is watching: the terminal UI, the log, or a plain percentage sink.
//
// Events are addressed by a hierarchical path such as ["block 2", "r7"].
// Reporters must never block the caller; a slow listener loses events rather
// than stalling a batch.
package progress
