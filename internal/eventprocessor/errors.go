// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"context"
	"errors"
	"strings"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/itemsim/internal/database"
	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/weights"
)

// ErrNilPublisher is returned when a handler is built without a publisher.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrorCategory categorizes errors for poison routing and metrics.
type ErrorCategory int

const (
	// ErrorCategoryUnknown is the default category for unclassified errors.
	ErrorCategoryUnknown ErrorCategory = iota
	// ErrorCategoryConnection indicates network or connection failures.
	ErrorCategoryConnection
	// ErrorCategoryTimeout indicates operation timeout.
	ErrorCategoryTimeout
	// ErrorCategoryValidation indicates malformed or invalid messages.
	ErrorCategoryValidation
	// ErrorCategoryDatabase indicates store failures.
	ErrorCategoryDatabase
	// ErrorCategoryCapacity indicates an open circuit or exhausted resource.
	ErrorCategoryCapacity
)

// String returns the string representation of the error category.
func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryConnection:
		return "connection"
	case ErrorCategoryTimeout:
		return "timeout"
	case ErrorCategoryValidation:
		return "validation"
	case ErrorCategoryDatabase:
		return "database"
	case ErrorCategoryCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// RetryableError is a transient failure. The router retries it and finally
// nacks the message for redelivery.
type RetryableError struct {
	Message  string
	Cause    error
	Category ErrorCategory
}

// NewRetryableError creates a new retryable error.
func NewRetryableError(message string, cause error) *RetryableError {
	return &RetryableError{
		Message:  message,
		Cause:    cause,
		Category: categorize(message, cause),
	}
}

func (e *RetryableError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RetryableError) Unwrap() error {
	return e.Cause
}

// PermanentError is a failure no retry can fix. The router routes the
// message to the poison topic and acks it.
type PermanentError struct {
	Message  string
	Cause    error
	Category ErrorCategory
}

// NewPermanentError creates a new permanent error. Unclassified permanent
// errors are validation errors.
func NewPermanentError(message string, cause error) *PermanentError {
	category := categorize(message, cause)
	if category == ErrorCategoryUnknown {
		category = ErrorCategoryValidation
	}
	return &PermanentError{
		Message:  message,
		Cause:    cause,
		Category: category,
	}
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// IsRetryableError checks if the error is retryable.
func IsRetryableError(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// IsPermanentError checks if the error is permanent (non-retryable).
func IsPermanentError(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}

// CategoryOf returns the category carried by err, or Unknown.
func CategoryOf(err error) ErrorCategory {
	var permErr *PermanentError
	if errors.As(err, &permErr) {
		return permErr.Category
	}
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return retryErr.Category
	}
	return ErrorCategoryUnknown
}

// isInvalidInput reports errors caused by the message itself.
func isInvalidInput(err error) bool {
	return errors.Is(err, models.ErrInvalidID) ||
		errors.Is(err, models.ErrUnknownKind) ||
		errors.Is(err, models.ErrSelfPair) ||
		errors.Is(err, weights.ErrMissingWeight) ||
		errors.Is(err, database.ErrInvalidArgument)
}

// classify wraps a processing failure: input errors become permanent,
// everything else retryable.
func classify(message string, err error) error {
	if err == nil {
		return nil
	}
	if IsPermanentError(err) || IsRetryableError(err) {
		return err
	}
	if isInvalidInput(err) {
		return NewPermanentError(message, err)
	}
	return NewRetryableError(message, err)
}

func categorize(message string, cause error) ErrorCategory {
	switch {
	case cause != nil && isInvalidInput(cause):
		return ErrorCategoryValidation
	case errors.Is(cause, gobreaker.ErrOpenState), errors.Is(cause, gobreaker.ErrTooManyRequests):
		return ErrorCategoryCapacity
	case errors.Is(cause, context.DeadlineExceeded):
		return ErrorCategoryTimeout
	}

	text := strings.ToLower(message)
	if cause != nil {
		text += " " + strings.ToLower(cause.Error())
	}
	switch {
	case containsAny(text, "connection", "connect", "refused", "reset", "network"):
		return ErrorCategoryConnection
	case containsAny(text, "timeout", "deadline", "timed out"):
		return ErrorCategoryTimeout
	case containsAny(text, "invalid", "validation", "malformed", "parse", "decode"):
		return ErrorCategoryValidation
	case containsAny(text, "database", "duckdb", "sql", "merge", "journal"):
		return ErrorCategoryDatabase
	case containsAny(text, "capacity", "full", "limit", "exceeded"):
		return ErrorCategoryCapacity
	default:
		return ErrorCategoryUnknown
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
