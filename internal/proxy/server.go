// Package proxy implements the caching reverse proxy core: it accepts
// plaintext HTTP/2 connections, fingerprints each request, consults a
// sharded admission-filtered cache, and on miss forwards to a backend
// chosen by a pluggable load-balancing algorithm.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ogxd/risu/internal/body"
	"github.com/ogxd/risu/internal/cache"
	"github.com/ogxd/risu/internal/config"
	"github.com/ogxd/risu/internal/fingerprint"
	"github.com/ogxd/risu/internal/loadbalancer"
	"github.com/ogxd/risu/internal/logging"
	"github.com/ogxd/risu/internal/metrics"
	"github.com/ogxd/risu/internal/middleware"
)

// Server is the proxy's accept loop plus the sharded cache, load
// balancer and metrics it consults per request.
type Server struct {
	httpServer   *http.Server
	loadBalancer loadbalancer.LoadBalancer
	cache        *cache.Sharded[fingerprint.Fingerprint, *CachedResponse]
	metrics      *metrics.Metrics
	logger       *logging.Logger
	config       *config.Config
}

// NewServer wires a Server from configuration plus its ambient
// collaborators (the load balancer, metrics registry and logger are
// constructed once by cmd/risu and handed in, so every component shares
// a single instance of each).
func NewServer(cfg *config.Config, lb loadbalancer.LoadBalancer, m *metrics.Metrics, log *logging.Logger) *Server {
	residentMode := cache.Absolute
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second

	sharded := cache.NewSharded[fingerprint.Fingerprint, *CachedResponse](
		cfg.InMemoryShards,
		cfg.CacheResidentSize,
		ttl,
		residentMode,
		cache.BytesKeyHasher[fingerprint.Fingerprint](),
	)

	s := &Server{
		loadBalancer: lb,
		cache:        sharded,
		metrics:      m,
		logger:       log,
		config:       cfg,
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ListeningPort),
		Handler: s.buildHandler(),
	}

	return s
}

// buildHandler wraps the per-request handler in an h2c handler when
// HTTP/2-over-plaintext is enabled, so gRPC and HTTP/2 clients can speak
// to the proxy without TLS. The logging middleware sits inside the h2c
// handler, so h2c receives the server's own hijackable ResponseWriter.
func (s *Server) buildHandler() http.Handler {
	handler := middleware.NewLogging(s.logger).Wrap(http.HandlerFunc(s.handle))
	if s.config.HTTP2 {
		h2s := &http2.Server{}
		handler = h2c.NewHandler(handler, h2s)
	}
	return handler
}

// Start begins serving inbound connections until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP/2 server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully stops accepting new connections and waits for
// in-flight ones to finish, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP/2 server: %w", err)
	}
	return nil
}

// handle drains the request body, computes its fingerprint, consults
// the sharded cache, and writes the result.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.metrics.IncCacheCalls()
	defer func() {
		s.metrics.ObserveResponseTime(time.Since(start).Seconds())
	}()

	reqBody, err := body.DrainRequest(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var hashHeader []byte
	if v := r.Header.Get(fingerprint.HashHeaderName); v != "" {
		hashHeader = []byte(v)
	}
	fp := fingerprint.Compute(r.URL.Path, r.URL.RawQuery, hashHeader, reqBody.Bytes())

	item := &forwardItem{
		method:  r.Method,
		path:    r.URL.Path,
		query:   r.URL.RawQuery,
		header:  r.Header,
		version: r.Proto,
		body:    reqBody,
	}

	resp, err := cache.GetOrCompute(
		s.cache,
		item,
		func(*forwardItem) fingerprint.Fingerprint { return fp },
		s.forward,
	)
	if err != nil {
		s.logger.Error(r.Context(), "origin request failed", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}

	if err := resp.Clone().WriteTo(w); err != nil {
		s.logger.Error(r.Context(), "failed writing response", err)
	}
}
