// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when an interaction kind is outside the closed set.
var ErrUnknownKind = errors.New("unknown interaction kind")

// ErrInvalidID is returned for a zero or negative item or user id.
var ErrInvalidID = errors.New("invalid id")

// InteractionKind enumerates the user actions that carry a similarity weight.
// The zero value is not a valid kind.
type InteractionKind int

const (
	KindView InteractionKind = iota + 1
	KindRegister
	KindLike
)

// AllKinds lists every valid kind. Weight tables are validated against it.
var AllKinds = []InteractionKind{KindView, KindRegister, KindLike}

// String returns the wire name of the kind.
func (k InteractionKind) String() string {
	switch k {
	case KindView:
		return "VIEW"
	case KindRegister:
		return "REGISTER"
	case KindLike:
		return "LIKE"
	default:
		return fmt.Sprintf("InteractionKind(%d)", int(k))
	}
}

// Valid reports whether k is one of AllKinds.
func (k InteractionKind) Valid() bool {
	switch k {
	case KindView, KindRegister, KindLike:
		return true
	default:
		return false
	}
}

// ParseInteractionKind parses a wire name, ignoring case and surrounding space.
func ParseInteractionKind(s string) (InteractionKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VIEW":
		return KindView, nil
	case "REGISTER":
		return KindRegister, nil
	case "LIKE":
		return KindLike, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// MarshalText encodes the kind as its wire name.
func (k InteractionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a wire name.
func (k *InteractionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseInteractionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Interaction is one user action on an item. Delivery is at-least-once, so the
// same interaction may be seen more than once and out of order.
type Interaction struct {
	UserID    int64           `json:"user_id"`
	ItemID    int64           `json:"item_id"`
	Kind      InteractionKind `json:"kind"`
	Timestamp int64           `json:"timestamp"`
}

// Validate checks ids and kind.
func (i Interaction) Validate() error {
	if i.UserID <= 0 {
		return fmt.Errorf("%w: user_id %d", ErrInvalidID, i.UserID)
	}
	if i.ItemID <= 0 {
		return fmt.Errorf("%w: item_id %d", ErrInvalidID, i.ItemID)
	}
	if !i.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(i.Kind))
	}
	return nil
}
