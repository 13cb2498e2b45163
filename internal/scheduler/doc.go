// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scheduler runs R realisations in sequential blocks of at most C
// concurrent worker processes.
//
// Within a block every realisation is prepared, launched in ascending order,
// joined and verified independently. A failed realisation is recorded and
// reported but never stops its block or later blocks. Only a missing
// prerequisite aborts the batch, and it does so before any block starts.
// Cancellation and Stop are honoured between blocks; a launched worker always
// runs to completion.
package scheduler
