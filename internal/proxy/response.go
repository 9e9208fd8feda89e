package proxy

import (
	"net/http"

	"github.com/ogxd/risu/internal/body"
)

// CachedResponse is the cache-shaped representation of a backend's
// response: status, headers and a fully drained body. It is immutable
// once constructed by the miss path (see forward.go); concurrent readers
// receive clones, never the original.
type CachedResponse struct {
	StatusCode int
	Header     http.Header
	Body       body.Buffered
}

// Clone returns a CachedResponse that shares the underlying body byte
// buffer but owns independent header and trailer maps, so a caller free
// to mutate its clone's headers never affects the cached original or any
// other concurrent reader's clone.
func (c *CachedResponse) Clone() *CachedResponse {
	return &CachedResponse{
		StatusCode: c.StatusCode,
		Header:     c.Header.Clone(),
		Body:       c.Body.Clone(),
	}
}

// WriteTo writes the status, headers and body (plus trailers) to w.
func (c *CachedResponse) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for key, values := range c.Header {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
	w.WriteHeader(c.StatusCode)
	return c.Body.WriteTo(w)
}
