// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package database

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/itemsim/internal/logging"
)

// ErrInvalidArgument is returned for ids <= 0 and negative or non-finite values.
var ErrInvalidArgument = errors.New("invalid merge argument")

// IsTransient reports whether err is worth retrying: a lost connection, a
// DuckDB write-write conflict or an expired deadline.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return isConnectionError(err) || isTransactionConflict(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"database is closed",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// A concurrent first insert of the same key can lose the race and report a
// duplicate key; the retry takes the update path.
func isTransactionConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on") ||
		strings.Contains(msg, "write-write conflict") ||
		strings.Contains(msg, "duplicate key")
}

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly is for error paths where a Close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
