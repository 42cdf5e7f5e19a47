// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package models

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestParseInteractionKind(t *testing.T) {
	tests := []struct {
		in      string
		want    InteractionKind
		wantErr bool
	}{
		{"VIEW", KindView, false},
		{"view", KindView, false},
		{" Register ", KindRegister, false},
		{"LIKE", KindLike, false},
		{"SHARE", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInteractionKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownKind) {
					t.Errorf("ParseInteractionKind(%q) error = %v, want ErrUnknownKind", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInteractionKind(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseInteractionKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInteraction_JSON(t *testing.T) {
	var in Interaction
	data := []byte(`{"user_id":7,"item_id":3,"kind":"like","timestamp":1000}`)
	if err := json.Unmarshal(data, &in); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := Interaction{UserID: 7, ItemID: 3, Kind: KindLike, Timestamp: 1000}
	if in != want {
		t.Errorf("Interaction = %+v, want %+v", in, want)
	}

	out, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got := string(out); got != `{"user_id":7,"item_id":3,"kind":"LIKE","timestamp":1000}` {
		t.Errorf("Marshal = %s", got)
	}

	if err := json.Unmarshal([]byte(`{"user_id":7,"item_id":3,"kind":"SHARE"}`), &in); err == nil {
		t.Error("Unmarshal with unknown kind should fail")
	}
}

func TestInteraction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      Interaction
		wantErr error
	}{
		{"valid", Interaction{UserID: 1, ItemID: 2, Kind: KindView}, nil},
		{"zero user", Interaction{UserID: 0, ItemID: 2, Kind: KindView}, ErrInvalidID},
		{"negative item", Interaction{UserID: 1, ItemID: -2, Kind: KindView}, ErrInvalidID},
		{"no kind", Interaction{UserID: 1, ItemID: 2}, ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewItemPair(t *testing.T) {
	if got := NewItemPair(5, 2); got != (ItemPair{A: 2, B: 5}) {
		t.Errorf("NewItemPair(5, 2) = %v, want (2,5)", got)
	}
	if NewItemPair(2, 5) != NewItemPair(5, 2) {
		t.Error("NewItemPair should be symmetric")
	}
	p := NewItemPair(9, 4)
	if p.Other(4) != 9 || p.Other(9) != 4 {
		t.Errorf("Other() mismatch for %v", p)
	}
}

func TestSimilarityUpdate_Validate(t *testing.T) {
	if err := (SimilarityUpdate{ItemA: 1, ItemB: 1, Score: 0.5}).Validate(); !errors.Is(err, ErrSelfPair) {
		t.Errorf("self pair Validate() = %v, want ErrSelfPair", err)
	}
	if err := (SimilarityUpdate{ItemA: 0, ItemB: 1}).Validate(); !errors.Is(err, ErrInvalidID) {
		t.Errorf("zero id Validate() = %v, want ErrInvalidID", err)
	}
	if err := (SimilarityUpdate{ItemA: 1, ItemB: 2, Score: -0.1}).Validate(); err == nil {
		t.Error("negative score should fail validation")
	}
	if err := (SimilarityUpdate{ItemA: 3, ItemB: 2, Score: 0.7}).Validate(); err != nil {
		t.Errorf("valid update Validate() = %v", err)
	}
}
