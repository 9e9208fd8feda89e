package proxy

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ogxd/risu/internal/config"
	"github.com/ogxd/risu/internal/loadbalancer"
	"github.com/ogxd/risu/internal/logging"
	"github.com/ogxd/risu/internal/metrics"
)

// newH2CBackend starts a plaintext HTTP/2 backend server, counting how
// many requests it actually receives (used to assert cache hits never
// reach the backend).
func newH2CBackend(t *testing.T, handler http.HandlerFunc) (addr string, hits *int32, closeFn func()) {
	t.Helper()
	var count int32
	h2s := &http2.Server{}
	wrapped := h2c.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		handler(w, r)
	}), h2s)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	srv := &http.Server{Handler: wrapped}
	go srv.Serve(ln)

	return ln.Addr().String(), &count, func() {
		srv.Close()
	}
}

func newTestServer(t *testing.T, backendAddr string) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.TargetAddresses = []string{backendAddr}
	cfg.InMemoryShards = 2
	cfg.CacheResidentSize = 10

	lb, err := loadbalancer.NewLoadBalancer(cfg.LoadBalanceAlgorithm, cfg.TargetAddresses, cfg.BackendWeights)
	if err != nil {
		t.Fatalf("NewLoadBalancer failed: %v", err)
	}
	m := metrics.New()
	log := logging.NewLogger("risu-test")
	return NewServer(cfg, lb, m, log)
}

func TestHandleMissThenHitDoesNotReachBackendIndefinitely(t *testing.T) {
	addr, hits, closeFn := newH2CBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-From-Backend", "1")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("payload"))
	})
	defer closeFn()

	s := newTestServer(t, addr)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/items?id=1", nil)
		rec := httptest.NewRecorder()
		s.handle(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("iteration %d: got status %d, want 200", i, rec.Code)
		}
		if rec.Body.String() != "payload" {
			t.Fatalf("iteration %d: got body %q, want %q", i, rec.Body.String(), "payload")
		}
	}

	// A one-hit probatory admission filter means the first two calls hit
	// the backend (first call admits to probatory only, second promotes
	// to resident and still invokes value_of because GetOrCompute's
	// TryGet only ever sees the resident tier); after promotion, the
	// third call must be served from the resident tier without another
	// backend round trip.
	if got := atomic.LoadInt32(hits); got < 2 {
		t.Fatalf("expected backend to be hit at least twice before promotion, got %d", got)
	}
	if got := atomic.LoadInt32(hits); got >= 3 {
		t.Fatalf("expected the resident hit to skip the backend, backend was hit %d times", got)
	}
}

func TestHandleOriginFailureReturnsBadGateway(t *testing.T) {
	// Pick an address nothing is listening on.
	s := newTestServer(t, "127.0.0.1:1")

	req := httptest.NewRequest(http.MethodGet, "/v1/items?id=1", nil)
	rec := httptest.NewRecorder()
	s.handle(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("got status %d, want 502", rec.Code)
	}
}

func TestHandleBodySensitiveKeying(t *testing.T) {
	addr, _, closeFn := newH2CBackend(t, func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("echo:" + string(buf[:n])))
	})
	defer closeFn()

	s := newTestServer(t, addr)

	// Two calls promote body-a to the resident tier, so a fingerprint
	// collision would serve body-a's response to the body-b request.
	var rec1 *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req1 := httptest.NewRequest(http.MethodPost, "/v1/items", strings.NewReader("body-a"))
		rec1 = httptest.NewRecorder()
		s.handle(rec1, req1)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/v1/items", strings.NewReader("body-b"))
	rec2 := httptest.NewRecorder()
	s.handle(rec2, req2)

	if rec1.Body.String() == rec2.Body.String() {
		t.Fatalf("different request bodies must not collide on the same cache entry")
	}
}

func TestHandleXHashHeaderOverridesBodyKeying(t *testing.T) {
	addr, hits, closeFn := newH2CBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fixed"))
	})
	defer closeFn()

	s := newTestServer(t, addr)

	// body-a twice promotes the x-hash key to resident; body-b with the
	// same x-hash must then be a hit, leaving the backend at two calls.
	for i, payload := range []string{"body-a", "body-a", "body-b"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/items", strings.NewReader(payload))
		req.Header.Set("x-hash", "same-client-hash")
		rec := httptest.NewRecorder()
		s.handle(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("iteration %d: got status %d", i, rec.Code)
		}
	}

	if atomic.LoadInt32(hits) > 2 {
		t.Fatalf("x-hash collision should key identically regardless of differing bodies, backend hit %d times", atomic.LoadInt32(hits))
	}
}
