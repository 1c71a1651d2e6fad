// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type mockServer struct {
	listenErr   error
	shutdownErr error
	closed      chan struct{}
	shutdowns   int
}

func newMockServer() *mockServer {
	return &mockServer{closed: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.closed
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.shutdowns++
	close(m.closed)
	return m.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Service did not stop on cancel")
	}
	if srv.shutdowns != 1 {
		t.Errorf("Expected 1 shutdown call, got %d", srv.shutdowns)
	}
}

func TestHTTPServiceStartFailure(t *testing.T) {
	srv := newMockServer()
	srv.listenErr = errors.New("bind: address already in use")
	svc := NewHTTPService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Expected listen error propagated, got %v", err)
	}
}

func TestHTTPServiceShutdownFailure(t *testing.T) {
	srv := newMockServer()
	srv.shutdownErr = errors.New("drain timeout")
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-done
	if err == nil || !errors.Is(err, srv.shutdownErr) {
		t.Errorf("Expected shutdown error propagated, got %v", err)
	}
}

func TestHTTPServiceDefaults(t *testing.T) {
	svc := NewHTTPService(newMockServer(), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("Expected 10s default timeout, got %s", svc.shutdownTimeout)
	}
	if svc.String() != "ops-http" {
		t.Errorf("Unexpected service name: %s", svc.String())
	}
}
