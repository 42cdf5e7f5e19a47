// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

// Package weights resolves interaction kinds to similarity weights.
//
// A Table is built once from configuration and is immutable afterwards, so it
// can be shared by every shard and handler without locking. Construction fails
// unless every kind in models.AllKinds has a positive weight.
package weights

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tomtom215/itemsim/internal/models"
)

// ErrMissingWeight is returned when a kind has no configured weight.
var ErrMissingWeight = errors.New("missing weight for interaction kind")

// ErrInvalidWeight is returned for zero, negative or non-finite weights.
var ErrInvalidWeight = errors.New("interaction weight must be a positive finite number")

// Resolver maps an interaction kind to its weight.
type Resolver interface {
	WeightOf(kind models.InteractionKind) (float64, error)
}

// Table is the validated kind-to-weight lookup.
type Table struct {
	view     float64
	register float64
	like     float64
}

// Defaults returns the stock weight configuration.
func Defaults() map[string]float64 {
	return map[string]float64{
		"view":     0.4,
		"register": 0.8,
		"like":     1.0,
	}
}

// NewTable validates raw configuration keyed by kind name (case-insensitive).
// Unknown names, missing kinds and non-positive weights are all errors, and
// every problem is reported in one go.
func NewTable(raw map[string]float64) (*Table, error) {
	resolved := make(map[models.InteractionKind]float64, len(raw))
	var problems []string

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind, err := models.ParseInteractionKind(name)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if _, dup := resolved[kind]; dup {
			problems = append(problems, fmt.Sprintf("duplicate weight for %s", kind))
			continue
		}
		w := raw[name]
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			problems = append(problems, fmt.Sprintf("%s: %v for %s", ErrInvalidWeight, w, kind))
			continue
		}
		resolved[kind] = w
	}

	for _, kind := range models.AllKinds {
		if _, ok := resolved[kind]; !ok && !hasKindName(names, kind) {
			problems = append(problems, fmt.Sprintf("%s %s", ErrMissingWeight, kind))
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid weight table: %s", strings.Join(problems, "; "))
	}

	return &Table{
		view:     resolved[models.KindView],
		register: resolved[models.KindRegister],
		like:     resolved[models.KindLike],
	}, nil
}

func hasKindName(names []string, kind models.InteractionKind) bool {
	for _, n := range names {
		if k, err := models.ParseInteractionKind(n); err == nil && k == kind {
			return true
		}
	}
	return false
}

// WeightOf returns the weight for kind.
func (t *Table) WeightOf(kind models.InteractionKind) (float64, error) {
	switch kind {
	case models.KindView:
		return t.view, nil
	case models.KindRegister:
		return t.register, nil
	case models.KindLike:
		return t.like, nil
	default:
		return 0, fmt.Errorf("%w: %d", models.ErrUnknownKind, int(kind))
	}
}

