package cache

import "testing"

func TestProbatoryFirstSightDoesNotPopulateResident(t *testing.T) {
	p := NewProbatory[int, string](4, 0, Absolute)

	if !p.TryAdd(1, "one") {
		t.Fatalf("first TryAdd should report admission (into probatory)")
	}
	if _, ok := p.TryGet(1); ok {
		t.Fatalf("a key seen once must not be visible via TryGet (resident tier only)")
	}
}

func TestProbatorySecondSightPromotesToResident(t *testing.T) {
	p := NewProbatory[int, string](4, 0, Absolute)

	p.TryAdd(1, "one")
	p.TryAdd(1, "one-again")

	v, ok := p.TryGet(1)
	if !ok {
		t.Fatalf("a key seen twice must be promoted to resident")
	}
	if v != "one-again" {
		t.Fatalf("TryGet(1) = %q, want the second admitted value %q", v, "one-again")
	}
}

func TestProbatoryKeyReachableViaTryGetWasAddedAtLeastTwice(t *testing.T) {
	p := NewProbatory[int, string](4, 0, Absolute)
	for i := 0; i < 10; i++ {
		p.TryAdd(i, "v")
	}
	if p.ResidentLen() != 0 {
		t.Fatalf("inserting more than max_size distinct keys each once must leave resident empty, got %d entries", p.ResidentLen())
	}
}

// TestEvictionOrderMatchesSpecScenario mirrors the end-to-end eviction
// scenario: resident capacity 4, keys 1-4 admitted twice (promoted), key
// 1 read, then key 5 admitted twice. Key 2 (now least-recently-used) is
// evicted; keys {1,3,4,5} remain.
func TestEvictionOrderMatchesSpecScenario(t *testing.T) {
	p := NewProbatory[int, string](4, 0, Absolute)

	for _, k := range []int{1, 2, 3, 4} {
		p.TryAdd(k, "v")
		p.TryAdd(k, "v")
	}

	if _, ok := p.TryGet(1); !ok {
		t.Fatalf("key 1 should be resident before the eviction-triggering admits")
	}

	p.TryAdd(5, "v")
	p.TryAdd(5, "v")

	for _, k := range []int{1, 3, 4, 5} {
		if _, ok := p.TryGet(k); !ok {
			t.Fatalf("key %d should still be present after eviction", k)
		}
	}
	if _, ok := p.TryGet(2); ok {
		t.Fatalf("key 2 should have been evicted as least-recently-used")
	}
}
