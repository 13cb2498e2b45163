// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package inputgen writes the per-realisation engine input and the
// post-processor directive that extracts extremes across a whole batch.
package inputgen
