// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package query

import (
	"strings"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
//	wb := query.NewWhereBuilder()
//	wb.AddInt64In("item_a", ids)
//	wb.AddClause("score > ?", 0.0)
//	where, args := wb.Build()
//	// WHERE item_a IN (?, ?) AND score > ?
type WhereBuilder struct {
	clauses []string
	args    []interface{}
	joiner  string
}

// NewWhereBuilder creates a builder that joins clauses with AND.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{joiner: " AND "}
}

// NewOrBuilder creates a builder that joins clauses with OR.
func NewOrBuilder() *WhereBuilder {
	return &WhereBuilder{joiner: " OR "}
}

// AddClause adds a raw condition with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddInt64In adds "column IN (?, ...)". An empty list adds a clause that
// matches nothing, so callers never widen a query by accident.
func (wb *WhereBuilder) AddInt64In(column string, values []int64) *WhereBuilder {
	if len(values) == 0 {
		wb.clauses = append(wb.clauses, "FALSE")
		return wb
	}
	wb.clauses = append(wb.clauses, column+" IN ("+Placeholders(len(values))+")")
	for _, v := range values {
		wb.args = append(wb.args, v)
	}
	return wb
}

// Build returns the clause prefixed with WHERE, or an empty string when no
// clause was added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "", wb.args
	}
	return "WHERE " + strings.Join(wb.clauses, wb.joiner), wb.args
}

// BuildExpr returns the joined conditions wrapped in parentheses, without the
// WHERE keyword, for nesting inside a larger condition.
func (wb *WhereBuilder) BuildExpr() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "TRUE", wb.args
	}
	return "(" + strings.Join(wb.clauses, wb.joiner) + ")", wb.args
}

// Placeholders returns n comma-separated question marks.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Chunk splits ids into slices of at most size elements.
func Chunk(ids []int64, size int) [][]int64 {
	if size <= 0 || len(ids) <= size {
		if len(ids) == 0 {
			return nil
		}
		return [][]int64{ids}
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
