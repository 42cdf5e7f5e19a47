// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

// Package query provides SQL fragment builders for the database package.
//
// All values are bound through placeholders; column names are always
// compile-time constants supplied by the caller, never user input.
package query
