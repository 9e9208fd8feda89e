package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ogxd/risu/internal/logging"
)

func TestLoggingMiddlewareCallsNextAndPreservesStatus(t *testing.T) {
	log := logging.NewLogger("risu-test")
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	wrapped := NewLogging(log).Wrap(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected wrapped handler to call next")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusTeapot)
	}
}
