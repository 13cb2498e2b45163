// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default logger uses a pretty console handler. The level is read once from
// <EXECUTABLE>_LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and defaults to WARN.
package ctxlog
