// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package validation

import (
	"strings"
	"testing"
)

type similarRequest struct {
	ItemID int64 `json:"item_id" validate:"entityid"`
	UserID int64 `json:"user" validate:"omitempty,entityid"`
	Max    int   `json:"max" validate:"min=0,max=100"`
}

type totalsRequest struct {
	ItemIDs []int64 `json:"item_ids" validate:"required,min=1,max=3,dive,entityid"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{name: "valid", input: &similarRequest{ItemID: 1, Max: 10}},
		{name: "valid with user", input: &similarRequest{ItemID: 1, UserID: 9, Max: 0}},
		{name: "zero item", input: &similarRequest{ItemID: 0}, wantField: "item_id", wantTag: "entityid"},
		{name: "negative user", input: &similarRequest{ItemID: 1, UserID: -3}, wantField: "user", wantTag: "entityid"},
		{name: "max too high", input: &similarRequest{ItemID: 1, Max: 101}, wantField: "max", wantTag: "max"},
		{name: "valid ids", input: &totalsRequest{ItemIDs: []int64{1, 2, 3}}},
		{name: "missing ids", input: &totalsRequest{}, wantField: "item_ids", wantTag: "required"},
		{name: "too many ids", input: &totalsRequest{ItemIDs: []int64{1, 2, 3, 4}}, wantField: "item_ids", wantTag: "max"},
		{name: "bad id in list", input: &totalsRequest{ItemIDs: []int64{1, 0}}, wantField: "item_ids[1]", wantTag: "entityid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if tt.wantTag == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			for _, e := range verr.Errors() {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					return
				}
			}
			t.Errorf("errors = %v, want field %s tag %s", verr.Errors(), tt.wantField, tt.wantTag)
		})
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&similarRequest{ItemID: 0}).ToAPIError()
	if single.Code != CodeValidation {
		t.Errorf("Code = %s, want %s", single.Code, CodeValidation)
	}
	if single.Message != "item_id must be a positive integer" {
		t.Errorf("Message = %q", single.Message)
	}
	if single.Details["field"] != "item_id" {
		t.Errorf("Details[field] = %v, want item_id", single.Details["field"])
	}

	multi := ValidateStruct(&similarRequest{ItemID: -1, UserID: -1, Max: 500}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %v, want 3 entries", multi.Details["fields"])
	}
	if !strings.Contains(multi.Message, "max must be at most 100") {
		t.Errorf("Message = %q, want the max failure listed", multi.Message)
	}

	if got := (&RequestValidationError{}).ToAPIError(); got.Message != "Validation failed" {
		t.Errorf("empty ToAPIError().Message = %q", got.Message)
	}
}
