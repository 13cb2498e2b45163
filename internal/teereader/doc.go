// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package teereader provides a reader that passes worker output straight through
// to a destination (normally the run's stdout capture file) while remembering
// the most recent complete line, so that a heartbeat can show what a long
// analysis is currently doing without buffering its whole output in memory.
package teereader
