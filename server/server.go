// Package server exposes the TinyRust+ checker to editors (LSP over stdio)
// and to other programs (Connect over HTTP/JSON).
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tliron/commonlog"

	"github.com/RocioCM/tinyrust-compiler/cache"
	"github.com/RocioCM/tinyrust-compiler/compiler"
)

var log = commonlog.GetLogger("tinyrust.server")

// CheckServer serves the check service over HTTP.
type CheckServer struct {
	worker  *CheckWorker
	reports *ReportStore
	mux     *http.ServeMux
	http    *http.Server

	stopSweeper func()
}

// ServerOption configures a CheckServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	cache     *cache.Cache
	reportTTL time.Duration
}

// WithCache makes the server answer repeated checks from c.
func WithCache(c *cache.Cache) ServerOption {
	return func(cfg *serverConfig) { cfg.cache = c }
}

// WithReportTTL sets how long unused reports stay retrievable by ID.
func WithReportTTL(ttl time.Duration) ServerOption {
	return func(cfg *serverConfig) { cfg.reportTTL = ttl }
}

// New creates a CheckServer checking with opts.
func New(opts compiler.Options, options ...ServerOption) *CheckServer {
	cfg := &serverConfig{reportTTL: 30 * time.Minute}
	for _, o := range options {
		o(cfg)
	}

	worker := NewCheckWorker(&Checker{Options: opts, Cache: cfg.cache})
	reports := NewReportStore()

	s := &CheckServer{
		worker:  worker,
		reports: reports,
		mux:     http.NewServeMux(),
	}
	s.http = &http.Server{Handler: s.mux}

	path, handler := NewCheckServiceHandler(NewCheckService(worker, reports))
	s.mux.Handle(path, handler)

	// Sweep every 5 minutes, or every TTL when it is shorter.
	interval := 5 * time.Minute
	if cfg.reportTTL < interval {
		interval = cfg.reportTTL
	}
	s.stopSweeper = reports.StartSweeper(interval, cfg.reportTTL)

	return s
}

// Handler returns the HTTP handler serving all procedures.
func (s *CheckServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *CheckServer) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *CheckServer) Serve(ln net.Listener) error {
	log.Infof("TinyRust+ check server listening on %s", ln.Addr())
	log.Infof("  Connect (HTTP/JSON): http://%s%s", ln.Addr(), CheckProcedure)
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight calls.
func (s *CheckServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Stop shuts down the background goroutines.
func (s *CheckServer) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.worker.Stop()
}
