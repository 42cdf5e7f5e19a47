// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/itemsim/internal/logging"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		inbound  string
		wantSame bool
	}{
		{name: "generates", inbound: ""},
		{name: "preserves", inbound: "upstream-42", wantSame: true},
		{name: "replaces oversized", inbound: strings.Repeat("x", maxRequestIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chiID, logID, corrID string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				chiID = GetRequestID(r.Context())
				logID = logging.RequestIDFromContext(r.Context())
				corrID = logging.CorrelationIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if tt.wantSame && got != tt.inbound {
				t.Errorf("%s = %q, want %q", RequestIDHeader, got, tt.inbound)
			}
			if !tt.wantSame {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("%s = %q is not a UUID", RequestIDHeader, got)
				}
			}
			if chiID != got || logID != got {
				t.Errorf("context ids chi=%q logging=%q, want %q", chiID, logID, got)
			}
			if corrID == "" {
				t.Error("correlation id not set")
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	h := RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/1/recommendations", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{`"level":"warn"`, `"status":500`, `"request_id":"req-1"`, `"message":"HTTP request"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %s missing %s", line, want)
		}
	}
}
