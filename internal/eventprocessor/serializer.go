// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itemsim/internal/models"
)

// Serializer encodes and decodes message payloads. Marshal validates first,
// so nothing invalid is ever published.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// MarshalInteraction converts an interaction to JSON.
func (s *Serializer) MarshalInteraction(in models.Interaction) ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validate interaction: %w", err)
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal interaction: %w", err)
	}
	return data, nil
}

// UnmarshalInteraction decodes an interaction. It does not validate ids so
// callers can tell malformed JSON from invalid content.
func (s *Serializer) UnmarshalInteraction(data []byte) (models.Interaction, error) {
	var in models.Interaction
	if err := json.Unmarshal(data, &in); err != nil {
		return models.Interaction{}, fmt.Errorf("unmarshal interaction: %w", err)
	}
	return in, nil
}

// MarshalUpdate converts a similarity update to JSON.
func (s *Serializer) MarshalUpdate(u models.SimilarityUpdate) ([]byte, error) {
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("validate similarity update: %w", err)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal similarity update: %w", err)
	}
	return data, nil
}

// UnmarshalUpdate decodes a similarity update.
func (s *Serializer) UnmarshalUpdate(data []byte) (models.SimilarityUpdate, error) {
	var u models.SimilarityUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return models.SimilarityUpdate{}, fmt.Errorf("unmarshal similarity update: %w", err)
	}
	return u, nil
}

// InteractionTopic returns the subject an interaction is published on, for
// example "interactions.like" under the "interactions.>" wildcard.
func InteractionTopic(subjects string, kind models.InteractionKind) string {
	base := strings.TrimSuffix(subjects, ">")
	base = strings.TrimSuffix(base, "*")
	base = strings.TrimSuffix(base, ".")
	return base + "." + strings.ToLower(kind.String())
}
