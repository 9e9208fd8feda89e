package loadbalancer

import (
	"errors"
	"sync"
)

// WeightedRoundRobinBalancer distributes selections across backends in
// proportion to their configured weight, using the smooth weighted
// round-robin algorithm: each backend accumulates its weight every
// round and the one with the highest running total is picked and then
// debited by the sum of all weights. This spreads high-weight backends
// out over time instead of bursting them.
type WeightedRoundRobinBalancer struct {
	backends       []Backend
	currentWeights []int
	mutex          sync.RWMutex
}

// NewWeightedRoundRobinBalancer creates a weighted round-robin balancer
// with all running weights starting at zero.
func NewWeightedRoundRobinBalancer(backends []Backend) *WeightedRoundRobinBalancer {
	return &WeightedRoundRobinBalancer{
		backends:       backends,
		currentWeights: make([]int, len(backends)),
	}
}

// SelectBackend returns the healthy backend with the highest running
// weight, then rebalances the running weights for the next call.
func (wrr *WeightedRoundRobinBalancer) SelectBackend() (Backend, error) {
	wrr.mutex.Lock()
	defer wrr.mutex.Unlock()

	if len(wrr.backends) == 0 {
		return nil, errors.New("no backends available")
	}

	selectedIndex := -1
	maxCurrentWeight := -1

	for i, backend := range wrr.backends {
		if !backend.IsHealthy() {
			continue
		}

		wrr.currentWeights[i] += backend.GetWeight()
		if wrr.currentWeights[i] > maxCurrentWeight {
			selectedIndex = i
			maxCurrentWeight = wrr.currentWeights[i]
		}
	}

	if selectedIndex == -1 {
		return nil, errors.New("no healthy backends available")
	}

	totalWeight := 0
	for _, backend := range wrr.backends {
		if backend.IsHealthy() {
			totalWeight += backend.GetWeight()
		}
	}
	wrr.currentWeights[selectedIndex] -= totalWeight

	return wrr.backends[selectedIndex], nil
}

// UpdateBackendHealth marks the backend with the given address healthy
// or unhealthy.
func (wrr *WeightedRoundRobinBalancer) UpdateBackendHealth(url string, healthy bool) {
	wrr.mutex.Lock()
	defer wrr.mutex.Unlock()

	for _, backend := range wrr.backends {
		if backend.GetURL() == url {
			backend.SetHealthy(healthy)
			return
		}
	}
}

// GetBackends returns a copy of all backends.
func (wrr *WeightedRoundRobinBalancer) GetBackends() []Backend {
	wrr.mutex.RLock()
	defer wrr.mutex.RUnlock()

	backends := make([]Backend, len(wrr.backends))
	copy(backends, wrr.backends)
	return backends
}

// UpdateBackendWeight sets a new weight for the backend with the given
// address.
func (wrr *WeightedRoundRobinBalancer) UpdateBackendWeight(url string, weight int) {
	wrr.mutex.Lock()
	defer wrr.mutex.Unlock()

	for _, backend := range wrr.backends {
		if backend.GetURL() == url {
			backend.SetWeight(weight)
			return
		}
	}
}
