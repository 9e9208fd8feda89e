package cache

import "time"

// Probatory is a one-hit admission filter: two stacked LRU caches. Keys
// enter the large probatory tier on first sight and only promote to the
// small resident tier on second sight, so a request seen exactly once
// never reaches (and therefore never evicts from) the resident tier.
//
// The probatory tier is always sized 10x the resident tier and always
// uses Sliding expiration, regardless of the resident tier's mode: a
// one-hit wonder that keeps getting requested should keep its
// probationary slot alive rather than expire out from under repeated
// traffic.
type Probatory[K comparable, V any] struct {
	probatory *LRU[K, struct{}]
	resident  *LRU[K, V]
}

// NewProbatory creates a probatory cache whose resident tier has the
// given capacity, expiration and mode.
func NewProbatory[K comparable, V any](residentSize int, expiration time.Duration, mode ExpirationMode) *Probatory[K, V] {
	return &Probatory[K, V]{
		probatory: NewLRU[K, struct{}](10*residentSize, expiration, Sliding),
		resident:  NewLRU[K, V](residentSize, expiration, mode),
	}
}

// TryAdd admits key into the probatory tier on first sight (returning
// true, without touching the resident tier), or promotes it into the
// resident tier on second sight (returning the resident tier's result).
func (p *Probatory[K, V]) TryAdd(key K, value V) bool {
	if p.probatory.TryAdd(key, struct{}{}) {
		return true
	}
	return p.resident.TryAdd(key, value)
}

// TryGet consults the resident tier only: probatory hits are invisible
// to readers.
func (p *Probatory[K, V]) TryGet(key K) (V, bool) {
	return p.resident.TryGet(key)
}

// ResidentLen returns the number of entries in the resident (value
// bearing) tier.
func (p *Probatory[K, V]) ResidentLen() int { return p.resident.Len() }
