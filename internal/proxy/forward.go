package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/net/http2"

	"github.com/ogxd/risu/internal/body"
	"github.com/ogxd/risu/internal/loadbalancer"
)

// forwardItem bundles everything the miss path needs from an inbound
// request: the original parts plus its already-drained body. It exists
// so get_or_compute's value_of closure has a single argument to carry
// through the shard-lock boundary (see cache.GetOrCompute).
type forwardItem struct {
	method  string
	path    string
	query   string
	header  http.Header
	version string
	body    body.Buffered
}

// forward picks a backend, opens a fresh TCP connection and HTTP/2
// handshake (no connection pooling, by design — a cache miss is already
// paying backend latency, so the extra handshake cost is a deliberate
// simplicity trade-off, not an oversight), forwards the request, and
// buffers the response into a CachedResponse. It is the value_of
// closure passed to cache.GetOrCompute, and therefore runs with no
// shard lock held.
func (s *Server) forward(item *forwardItem) (*CachedResponse, error) {
	s.metrics.IncCacheMisses()

	backend, err := s.loadBalancer.SelectBackend()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoBackends, err)
	}

	backend.IncrementConnections()
	defer backend.DecrementConnections()

	transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}

	httpBackend, ok := backend.(*loadbalancer.HTTPBackend)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported backend type %T", ErrBadGateway, backend)
	}

	uri := fmt.Sprintf("http://%s%s", httpBackend.Host(), item.path)
	if item.query != "" {
		uri += "?" + item.query
	}

	outReq, err := http.NewRequest(item.method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadGateway, err)
	}
	outReq.Header = item.header.Clone()
	item.body.AttachRequest(outReq)

	resp, err := transport.RoundTrip(outReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadGateway, err)
	}

	respBody, err := body.DrainResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadGateway, err)
	}

	return &CachedResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}
