// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stopCh      chan struct{}
	shutdowns   atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	m.started <- struct{}{}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

var _ suture.Service = (*HTTPServerService)(nil)

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if got := NewHTTPServerService(newMockHTTPServer(), d).shutdownTimeout; got != 10*time.Second {
			t.Errorf("timeout for %v = %v, want 10s", d, got)
		}
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	tests := []struct {
		name        string
		listenErr   error
		shutdownErr error
		wantIs      error
	}{
		{name: "graceful shutdown", wantIs: context.Canceled},
		{name: "listen failure", listenErr: errors.New("bind: address already in use")},
		{name: "shutdown failure", shutdownErr: errors.New("shutdown timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newMockHTTPServer()
			server.listenErr = tt.listenErr
			server.shutdownErr = tt.shutdownErr
			svc := NewHTTPServerService(server, time.Second)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			<-server.started
			if tt.listenErr == nil {
				cancel()
			}

			var err error
			select {
			case err = <-errCh:
			case <-time.After(2 * time.Second):
				t.Fatal("Serve did not return")
			}

			switch {
			case tt.listenErr != nil:
				if !errors.Is(err, tt.listenErr) {
					t.Errorf("Serve = %v, want %v", err, tt.listenErr)
				}
				if server.shutdowns.Load() != 0 {
					t.Error("Shutdown called after a listen failure")
				}
			case tt.shutdownErr != nil:
				if !errors.Is(err, tt.shutdownErr) {
					t.Errorf("Serve = %v, want %v", err, tt.shutdownErr)
				}
			default:
				if !errors.Is(err, tt.wantIs) {
					t.Errorf("Serve = %v, want %v", err, tt.wantIs)
				}
				if server.shutdowns.Load() != 1 {
					t.Errorf("Shutdown calls = %d, want 1", server.shutdowns.Load())
				}
			}
		})
	}
}

func TestHTTPServerService_String(t *testing.T) {
	if got := NewHTTPServerService(newMockHTTPServer(), time.Second).String(); got != "http-server" {
		t.Errorf("String() = %q, want http-server", got)
	}
}
