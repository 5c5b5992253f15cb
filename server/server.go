// Package server exposes the compiler over the network: a Connect compile
// service and a language server publishing diagnostics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackc/cache"
)

var log = commonlog.GetLogger("stackc.server")

// CompileServer serves the compile service and a health check.
type CompileServer struct {
	mux  *http.ServeMux
	http *http.Server
}

// ServerOption configures a CompileServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	cache *cache.Cache
}

// WithCache makes the compile service reuse and store objects in c.
func WithCache(c *cache.Cache) ServerOption {
	return func(cfg *serverConfig) { cfg.cache = c }
}

// New creates a CompileServer.
func New(opts ...ServerOption) *CompileServer {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &CompileServer{mux: http.NewServeMux()}
	s.http = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	compilePath, compileHandler := NewCompileService(cfg.cache).Handler()
	s.mux.Handle(compilePath, compileHandler)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})

	return s
}

// Handler returns the server's HTTP handler.
func (s *CompileServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *CompileServer) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Noticef("compile service listening on %s", ln.Addr())
	log.Infof("  Connect (CBOR): http://%s%s", ln.Addr(), CompileProcedure)
	err = s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *CompileServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
