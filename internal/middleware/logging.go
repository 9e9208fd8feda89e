// Package middleware holds small HTTP decorators wrapped around the
// proxy core (internal/proxy), outside the cache-affecting request path
// itself.
package middleware

import (
	"net/http"

	"github.com/ogxd/risu/internal/logging"
)

// loggingMiddleware adapts logging.Logger's request logger into
// Middleware.
type loggingMiddleware struct {
	logger *logging.Logger
}

// NewLogging constructs request-logging middleware around log.
func NewLogging(log *logging.Logger) Middleware {
	return &loggingMiddleware{logger: log}
}

// Wrap logs method, path, status and duration for every request that
// passes through, with trace correlation when a span is active.
func (lm *loggingMiddleware) Wrap(next http.Handler) http.Handler {
	return lm.logger.HTTPRequestLogger()(next)
}
