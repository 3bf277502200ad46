// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/hikeplanner/internal/logging"
)

// scriptedServer blocks in ListenAndServe until Shutdown is called, unless
// listenErr is set, in which case ListenAndServe returns it at once.
type scriptedServer struct {
	listenErr   error
	shutdownErr error
	// drainFor makes Shutdown wait this long or until its context ends.
	drainFor time.Duration

	started   chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	mu          sync.Mutex
	shutdowns   int
	shutdownCtx context.Context
	ctxErrAtEnd error
}

func newScriptedServer() *scriptedServer {
	return &scriptedServer{
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *scriptedServer) ListenAndServe() error {
	s.startOnce.Do(func() { close(s.started) })
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *scriptedServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdowns++
	s.shutdownCtx = ctx
	s.mu.Unlock()

	var err error
	if s.drainFor > 0 {
		select {
		case <-time.After(s.drainFor):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	s.mu.Lock()
	s.ctxErrAtEnd = ctx.Err()
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopped) })
	if err != nil {
		return err
	}
	return s.shutdownErr
}

func (s *scriptedServer) calls() (int, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdowns, s.shutdownCtx
}

// serveUntilCanceled starts svc, cancels it once the server is listening
// and returns what Serve returned.
func serveUntilCanceled(t *testing.T, svc *HTTPServerService, srv *scriptedServer) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-srv.started:
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe was not called")
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
		return nil
	}
}

func TestNewHTTPServerService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"explicit", 3 * time.Second, 3 * time.Second},
		{"zero falls back", 0, defaultShutdownTimeout},
		{"negative falls back", -time.Second, defaultShutdownTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewHTTPServerService(newScriptedServer(), tt.timeout)
			if svc.shutdownTimeout != tt.want {
				t.Errorf("shutdownTimeout = %v, want %v", svc.shutdownTimeout, tt.want)
			}
			if svc.String() != "prediction-http" {
				t.Errorf("String() = %q, want prediction-http", svc.String())
			}
		})
	}
}

func TestHTTPServerService_CancelReturnsContextError(t *testing.T) {
	t.Parallel()

	srv := newScriptedServer()
	err := serveUntilCanceled(t, NewHTTPServerService(srv, time.Second), srv)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if n, _ := srv.calls(); n != 1 {
		t.Errorf("Shutdown called %d times, want 1", n)
	}
}

func TestHTTPServerService_ShutdownOutlivesServeContext(t *testing.T) {
	t.Parallel()

	srv := newScriptedServer()
	srv.drainFor = 50 * time.Millisecond
	timeout := 2 * time.Second

	before := time.Now()
	if err := serveUntilCanceled(t, NewHTTPServerService(srv, timeout), srv); !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve() = %v, want context.Canceled", err)
	}

	_, shutdownCtx := srv.calls()
	deadline, ok := shutdownCtx.Deadline()
	if !ok {
		t.Fatal("shutdown context has no deadline")
	}
	if d := deadline.Sub(before); d < timeout || d > timeout+time.Second {
		t.Errorf("shutdown deadline %v after start, want about %v", d, timeout)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.ctxErrAtEnd != nil {
		t.Errorf("shutdown context ended early with %v; draining must survive the canceled Serve context", srv.ctxErrAtEnd)
	}
}

func TestHTTPServerService_DrainBoundedByTimeout(t *testing.T) {
	t.Parallel()

	srv := newScriptedServer()
	srv.drainFor = time.Minute

	start := time.Now()
	err := serveUntilCanceled(t, NewHTTPServerService(srv, 100*time.Millisecond), srv)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want wrapped context.DeadlineExceeded", err)
	}
	if err != nil && !strings.Contains(err.Error(), "shutdown failed") {
		t.Errorf("Serve() = %v, want shutdown failure", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("drain took %v, want it cut off near 100ms", elapsed)
	}
}

func TestHTTPServerService_ServeResults(t *testing.T) {
	t.Parallel()

	bind := errors.New("listen tcp :8080: bind: address already in use")

	tests := []struct {
		name      string
		listenErr error
		wantErr   error
	}{
		{"listen failure is returned", bind, bind},
		{"server closed elsewhere is a clean stop", http.ErrServerClosed, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newScriptedServer()
			srv.listenErr = tt.listenErr

			err := NewHTTPServerService(srv, time.Second).Serve(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Serve() = %v, want nil", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("Serve() = %v, want %v", err, tt.wantErr)
			}
			if n, _ := srv.calls(); n != 0 {
				t.Errorf("Shutdown called %d times for a server that stopped by itself", n)
			}
		})
	}
}

func TestHTTPServerService_ShutdownError(t *testing.T) {
	t.Parallel()

	srv := newScriptedServer()
	srv.shutdownErr = errors.New("connections still open")

	err := serveUntilCanceled(t, NewHTTPServerService(srv, time.Second), srv)
	if !errors.Is(err, srv.shutdownErr) {
		t.Errorf("Serve() = %v, want wrapped %v", err, srv.shutdownErr)
	}
}

// TestHTTPServerService_LogsListenAndDrain swaps the global logger, so it
// must not run in parallel.
func TestHTTPServerService_LogsListenAndDrain(t *testing.T) {
	var buf syncBuffer
	previous := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(previous) })

	server := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, 750*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	out := buf.String()
	for _, want := range []string{
		`"message":"Prediction service listening"`,
		`"addr":"127.0.0.1:0"`,
		`"message":"Draining prediction service"`,
		`"timeout":750`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestHTTPServerService_StoppedBySupervisor(t *testing.T) {
	t.Parallel()

	srv := newScriptedServer()
	sup := suture.New("test-api-layer", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	select {
	case <-srv.started:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not start the service")
	}
	cancel()

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	if n, _ := srv.calls(); n != 1 {
		t.Errorf("Shutdown called %d times, want 1", n)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
