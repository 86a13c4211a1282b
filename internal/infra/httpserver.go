package infra

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// HTTPServer runs the API handler with the timeouts from Config. Start and
// Serve return nil once Shutdown has closed the server.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer binds handler to cfg.Port.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{server: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

// Addr is the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

// Start listens on Addr and blocks until the server stops.
func (s *HTTPServer) Start() error {
	return closedIsClean(s.server.ListenAndServe())
}

// Serve accepts connections on ln until the server stops.
func (s *HTTPServer) Serve(ln net.Listener) error {
	return closedIsClean(s.server.Serve(ln))
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func closedIsClean(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
