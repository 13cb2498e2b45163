// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui is a live terminal view of a batch: a tree of blocks and their
// realisations with status, elapsed time and the last heartbeat line, above an
// overall progress bar.
//
// The model consumes progress events, so the same scheduler that drives the
// plain log output drives the TUI without knowing about it.
package tui
