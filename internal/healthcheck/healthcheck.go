// Package healthcheck runs a background monitor over a backend pool,
// periodically probing each member and reporting health back to the
// load balancer so it can route around a down backend.
package healthcheck

import (
	"context"
	"net/http"
	"time"

	"github.com/ogxd/risu/internal/loadbalancer"
)

// Monitor periodically probes every backend known to a LoadBalancer and
// reports health status back to it.
type Monitor struct {
	lb       loadbalancer.LoadBalancer
	interval time.Duration
	timeout  time.Duration
	path     string
	client   *http.Client
}

// New creates a Monitor over lb, probing path on each backend's address
// every interval, with each probe bounded by timeout.
func New(lb loadbalancer.LoadBalancer, interval, timeout time.Duration, path string) *Monitor {
	return &Monitor{
		lb:       lb,
		interval: interval,
		timeout:  timeout,
		path:     path,
		client:   &http.Client{Timeout: timeout},
	}
}

// Run blocks, performing an immediate health check followed by one every
// interval, until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.checkAll()

	for {
		select {
		case <-ticker.C:
			m.checkAll()
		case <-ctx.Done():
			return
		}
	}
}

// checkAll probes every backend concurrently and reports results to the
// load balancer as they complete.
func (m *Monitor) checkAll() {
	for _, backend := range m.lb.GetBackends() {
		go func(b loadbalancer.Backend) {
			healthy := m.check(b)
			m.lb.UpdateBackendHealth(b.GetURL(), healthy)
		}(backend)
	}
}

// check performs a single GET to backend.GetURL()+path, treating any 2xx
// response as healthy and any error or non-2xx response as unhealthy.
func (m *Monitor) check(backend loadbalancer.Backend) bool {
	resp, err := m.client.Get(backend.GetURL() + m.path)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
