package infra

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestHTTPServerAppliesConfig(t *testing.T) {
	cfg := &Config{
		Port:                  "9099",
		HTTPReadTimeout:       3 * time.Second,
		HTTPReadHeaderTimeout: 2 * time.Second,
		HTTPWriteTimeout:      4 * time.Second,
		HTTPIdleTimeout:       5 * time.Second,
	}
	srv := NewHTTPServer(cfg, http.NotFoundHandler())

	if srv.Addr() != ":9099" {
		t.Fatalf("Addr = %q", srv.Addr())
	}
	if srv.server.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("ReadHeaderTimeout = %v", srv.server.ReadHeaderTimeout)
	}
	if srv.server.ReadTimeout != 3*time.Second || srv.server.WriteTimeout != 4*time.Second || srv.server.IdleTimeout != 5*time.Second {
		t.Fatalf("timeouts not applied: %+v", srv.server)
	}
}

func TestHTTPServerShutdownIsCleanExit(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewHTTPServer(&Config{HTTPReadHeaderTimeout: time.Second}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve after Shutdown returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return after Shutdown")
	}
}

func TestClosedIsClean(t *testing.T) {
	if err := closedIsClean(http.ErrServerClosed); err != nil {
		t.Fatalf("ErrServerClosed should map to nil, got %v", err)
	}
	if err := closedIsClean(io.ErrUnexpectedEOF); err != io.ErrUnexpectedEOF {
		t.Fatalf("other errors should pass through, got %v", err)
	}
}
