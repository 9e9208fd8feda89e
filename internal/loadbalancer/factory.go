package loadbalancer

import (
	"fmt"
	"strings"
)

// LoadBalancerType represents different load balancing algorithms
// Enables type-safe selection of load balancing strategies
type LoadBalancerType string

const (
	Random             LoadBalancerType = "random"
	RoundRobin         LoadBalancerType = "round-robin"
	LeastConnections   LoadBalancerType = "least-in-flight"
	WeightedRoundRobin LoadBalancerType = "weighted-round-robin"
)

// NewLoadBalancer creates a load balancer over targetAddresses using the
// named algorithm. weights maps an address to its weight for
// weighted-round-robin; addresses absent from weights default to 1.
func NewLoadBalancer(algorithm string, targetAddresses []string, weights map[string]int) (LoadBalancer, error) {
	if len(targetAddresses) == 0 {
		return nil, fmt.Errorf("no backends configured")
	}

	backends := make([]Backend, len(targetAddresses))
	for i, addr := range targetAddresses {
		weight := weights[addr]
		if weight <= 0 {
			weight = 1
		}
		backend, err := NewHTTPBackend(addr, weight)
		if err != nil {
			return nil, fmt.Errorf("failed to create backend %s: %w", addr, err)
		}
		backends[i] = backend
	}

	switch LoadBalancerType(strings.ToLower(algorithm)) {
	case Random, "":
		return NewRandomBalancer(backends), nil
	case RoundRobin:
		return NewRoundRobinBalancer(backends), nil
	case LeastConnections:
		return NewLeastConnectionsBalancer(backends), nil
	case WeightedRoundRobin:
		return NewWeightedRoundRobinBalancer(backends), nil
	default:
		return nil, fmt.Errorf("unsupported load balancing algorithm: %s", algorithm)
	}
}

// GetSupportedAlgorithms returns the list of supported load balancing
// algorithms.
func GetSupportedAlgorithms() []string {
	return []string{
		string(Random),
		string(RoundRobin),
		string(LeastConnections),
		string(WeightedRoundRobin),
	}
}
