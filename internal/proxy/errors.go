package proxy

import "errors"

// ErrBadGateway is the single error kind an origin failure (connect,
// handshake, send or drain) maps to. It is never admitted to the cache.
var ErrBadGateway = errors.New("proxy: bad gateway")

// ErrNoBackends is returned when the load balancer has no healthy
// backend to select.
var ErrNoBackends = errors.New("proxy: no healthy backends available")
