// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch supervises the worker processes of a block and records
// what happened to them.
//
// A Supervisor launches each worker in its own working directory, captures its
// stdout to a file while tracking the latest line for heartbeats, and joins
// every process of a block regardless of exit status. Results form a tree
// (batch, blocks, realisations) that can be printed or persisted with gob and
// re-rendered later.
package runbatch
