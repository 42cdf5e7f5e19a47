// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/itemsim/internal/models"
)

func TestSerializer_Interaction(t *testing.T) {
	s := NewSerializer()

	data, err := s.MarshalInteraction(models.Interaction{UserID: 7, ItemID: 3, Kind: models.KindLike, Timestamp: 42})
	if err != nil {
		t.Fatalf("MarshalInteraction: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"LIKE"`) {
		t.Errorf("payload %s does not carry the wire kind name", data)
	}

	in, err := s.UnmarshalInteraction([]byte(`{"user_id":7,"item_id":3,"kind":"view","timestamp":9}`))
	if err != nil {
		t.Fatalf("UnmarshalInteraction: %v", err)
	}
	if in.Kind != models.KindView || in.UserID != 7 || in.ItemID != 3 || in.Timestamp != 9 {
		t.Errorf("UnmarshalInteraction = %+v", in)
	}
}

func TestSerializer_Rejects(t *testing.T) {
	s := NewSerializer()

	if _, err := s.MarshalInteraction(models.Interaction{UserID: 0, ItemID: 1, Kind: models.KindView}); !errors.Is(err, models.ErrInvalidID) {
		t.Errorf("MarshalInteraction(user 0) err = %v, want ErrInvalidID", err)
	}
	if _, err := s.UnmarshalInteraction([]byte(`{"user_id":1,"item_id":1,"kind":"SHARE"}`)); err == nil {
		t.Error("UnmarshalInteraction accepted an unknown kind")
	}
	if _, err := s.UnmarshalInteraction([]byte(`{not json`)); err == nil {
		t.Error("UnmarshalInteraction accepted malformed JSON")
	}
	if _, err := s.MarshalUpdate(models.SimilarityUpdate{ItemA: 2, ItemB: 2, Score: 1}); !errors.Is(err, models.ErrSelfPair) {
		t.Errorf("MarshalUpdate(self pair) err = %v, want ErrSelfPair", err)
	}
}

func TestSerializer_Update(t *testing.T) {
	s := NewSerializer()
	want := models.SimilarityUpdate{ItemA: 1, ItemB: 2, Score: 0.75, Timestamp: 5}

	data, err := s.MarshalUpdate(want)
	if err != nil {
		t.Fatalf("MarshalUpdate: %v", err)
	}
	got, err := s.UnmarshalUpdate(data)
	if err != nil {
		t.Fatalf("UnmarshalUpdate: %v", err)
	}
	if got != want {
		t.Errorf("UnmarshalUpdate = %+v, want %+v", got, want)
	}
}

func TestInteractionTopic(t *testing.T) {
	tests := []struct {
		subjects string
		kind     models.InteractionKind
		want     string
	}{
		{"interactions.>", models.KindView, "interactions.view"},
		{"interactions.*", models.KindLike, "interactions.like"},
		{"events.interactions", models.KindRegister, "events.interactions.register"},
	}
	for _, tt := range tests {
		if got := InteractionTopic(tt.subjects, tt.kind); got != tt.want {
			t.Errorf("InteractionTopic(%q, %v) = %q, want %q", tt.subjects, tt.kind, got, tt.want)
		}
	}
}

func TestUpdateMessageID(t *testing.T) {
	u := models.SimilarityUpdate{ItemA: 1, ItemB: 2, Score: 0.5, Timestamp: 10}
	if UpdateMessageID(u) != UpdateMessageID(u) {
		t.Error("UpdateMessageID is not stable")
	}
	v := u
	v.Score = 0.6
	if UpdateMessageID(u) == UpdateMessageID(v) {
		t.Error("different scores produced the same id")
	}
}
