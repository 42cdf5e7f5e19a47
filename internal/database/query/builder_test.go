// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package query

import (
	"testing"
)

func TestWhereBuilder(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *WhereBuilder
		wantSQL  string
		wantArgs int
	}{
		{
			name:     "empty",
			build:    NewWhereBuilder,
			wantSQL:  "",
			wantArgs: 0,
		},
		{
			name: "in and clause",
			build: func() *WhereBuilder {
				return NewWhereBuilder().AddInt64In("item_id", []int64{1, 2}).AddClause("weight > ?", 0.0)
			},
			wantSQL:  "WHERE item_id IN (?, ?) AND weight > ?",
			wantArgs: 3,
		},
		{
			name: "or builder",
			build: func() *WhereBuilder {
				return NewOrBuilder().AddInt64In("item_a", []int64{7}).AddInt64In("item_b", []int64{7})
			},
			wantSQL:  "WHERE item_a IN (?) OR item_b IN (?)",
			wantArgs: 2,
		},
		{
			name: "empty in matches nothing",
			build: func() *WhereBuilder {
				return NewWhereBuilder().AddInt64In("item_id", nil)
			},
			wantSQL:  "WHERE FALSE",
			wantArgs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.build().Build()
			if sql != tt.wantSQL {
				t.Errorf("Build() sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("Build() args = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestBuildExpr(t *testing.T) {
	expr, args := NewOrBuilder().AddClause("a = ?", 1).AddClause("b = ?", 2).BuildExpr()
	if expr != "(a = ? OR b = ?)" {
		t.Errorf("BuildExpr() = %q", expr)
	}
	if len(args) != 2 {
		t.Errorf("args = %d, want 2", len(args))
	}
	if expr, _ := NewWhereBuilder().BuildExpr(); expr != "TRUE" {
		t.Errorf("empty BuildExpr() = %q, want TRUE", expr)
	}
}

func TestPlaceholders(t *testing.T) {
	tests := map[int]string{0: "", 1: "?", 3: "?, ?, ?"}
	for n, want := range tests {
		if got := Placeholders(n); got != want {
			t.Errorf("Placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestChunk(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5}

	chunks := Chunk(ids, 2)
	if len(chunks) != 3 {
		t.Fatalf("len(Chunk) = %d, want 3", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0] != 5 {
		t.Errorf("last chunk = %v, want [5]", chunks[2])
	}
	if got := Chunk(ids, 0); len(got) != 1 || len(got[0]) != 5 {
		t.Errorf("Chunk(ids, 0) = %v, want one chunk", got)
	}
	if got := Chunk(nil, 10); got != nil {
		t.Errorf("Chunk(nil) = %v, want nil", got)
	}
}
