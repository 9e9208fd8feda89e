// Package arenalist implements an intrusive doubly-linked list whose nodes
// live in a growable flat array instead of being individually heap-allocated.
// Nodes are addressed by Handle, a stable index that survives array growth,
// so callers can hold on to a Handle across mutations the way they would
// hold a pointer in a classical pointer-based list — without the cyclic
// reference graph a pointer-based doubly-linked list creates.
package arenalist

import "errors"

// ErrInvalidHandle is returned by Get and Remove when a Handle does not
// refer to a live node: it is NoHandle, out of range, or already free.
var ErrInvalidHandle = errors.New("arenalist: invalid handle")

// Handle is an opaque, copyable index into a List's backing array.
type Handle int

// NoHandle is the reserved sentinel meaning "no node".
const NoHandle Handle = -1

type node[T any] struct {
	prev  Handle
	next  Handle
	value *T
}

func (n *node[T]) live() bool { return n.value != nil }

// List is an arena-backed intrusive doubly-linked list over values of type
// T. The zero value is not ready to use; construct one with New.
type List[T any] struct {
	count     int
	first     Handle
	last      Handle
	firstFree Handle
	nodes     []node[T]
}

// New creates an empty list with the given initial backing capacity. A
// capacity of zero is rounded up to one so createNode always has room to
// grow by doubling.
func New[T any](capacity int) *List[T] {
	if capacity < 1 {
		capacity = 1
	}
	l := &List[T]{
		nodes: make([]node[T], capacity),
	}
	l.Clear()
	return l
}

// Count returns the number of live nodes.
func (l *List[T]) Count() int { return l.count }

// First returns the handle of the first live node, or NoHandle if empty.
func (l *List[T]) First() Handle { return l.first }

// Last returns the handle of the last live node, or NoHandle if empty.
func (l *List[T]) Last() Handle { return l.last }

// Clear resets the list to empty and rebuilds the free list over the
// entire backing array.
func (l *List[T]) Clear() {
	l.fillFree(0, len(l.nodes))
	l.count = 0
	l.first = NoHandle
	l.last = NoHandle
}

// fillFree threads nodes[start:start+n] onto the free list, in order.
func (l *List[T]) fillFree(start, n int) {
	if n == 0 {
		l.firstFree = NoHandle
		return
	}
	l.firstFree = Handle(start)
	for i := start; i < start+n-1; i++ {
		l.nodes[i] = node[T]{prev: NoHandle, next: Handle(i + 1), value: nil}
	}
	l.nodes[start+n-1] = node[T]{prev: NoHandle, next: NoHandle, value: nil}
}

// Get returns a pointer to the value stored at h. The pointer is valid
// until the node is removed or the list grows.
func (l *List[T]) Get(h Handle) (*T, error) {
	if !l.validLive(h) {
		return nil, ErrInvalidHandle
	}
	return l.nodes[h].value, nil
}

func (l *List[T]) validLive(h Handle) bool {
	return h != NoHandle && int(h) >= 0 && int(h) < len(l.nodes) && l.nodes[h].live()
}

// createNode allocates a fresh node holding value, growing the backing
// array (doubling it) if the free list is exhausted.
func (l *List[T]) createNode(value T) Handle {
	if l.firstFree == NoHandle {
		oldLen := len(l.nodes)
		newLen := oldLen * 2
		if newLen == 0 {
			newLen = 1
		}
		grown := make([]node[T], newLen)
		copy(grown, l.nodes)
		l.nodes = grown
		l.fillFree(oldLen, newLen-oldLen)
	}

	h := l.firstFree
	n := &l.nodes[h]
	l.firstFree = n.next
	v := value
	n.prev = NoHandle
	n.next = NoHandle
	n.value = &v
	l.count++
	return h
}

// AddFirst inserts value as the new head of the list.
func (l *List[T]) AddFirst(value T) Handle {
	h, _ := l.AddBefore(value, l.first)
	return h
}

// AddLast inserts value as the new tail of the list.
func (l *List[T]) AddLast(value T) Handle {
	h, _ := l.AddAfter(value, l.last)
	return h
}

// AddBefore inserts value immediately before the live node at before. If
// before is NoHandle (typically because the list is empty), the new node
// becomes the sole element. Returns ErrInvalidHandle if before is neither
// NoHandle nor a live node.
func (l *List[T]) AddBefore(value T, before Handle) (Handle, error) {
	if before == NoHandle {
		h := l.createNode(value)
		l.first = h
		l.last = h
		return h, nil
	}
	if !l.validLive(before) {
		return NoHandle, ErrInvalidHandle
	}

	h := l.createNode(value)
	beforePrev := l.nodes[before].prev

	l.nodes[h].prev = beforePrev
	l.nodes[h].next = before
	if beforePrev != NoHandle {
		l.nodes[beforePrev].next = h
	}
	l.nodes[before].prev = h

	if l.first == before {
		l.first = h
	}
	return h, nil
}

// AddAfter inserts value immediately after the live node at after. If
// after is NoHandle, the new node becomes the sole element. Returns
// ErrInvalidHandle if after is neither NoHandle nor a live node.
func (l *List[T]) AddAfter(value T, after Handle) (Handle, error) {
	if after == NoHandle {
		h := l.createNode(value)
		l.first = h
		l.last = h
		return h, nil
	}
	if !l.validLive(after) {
		return NoHandle, ErrInvalidHandle
	}

	h := l.createNode(value)
	afterNext := l.nodes[after].next

	l.nodes[h].prev = after
	l.nodes[h].next = afterNext
	if afterNext != NoHandle {
		l.nodes[afterNext].prev = h
	}
	l.nodes[after].next = h

	if l.last == after {
		l.last = h
	}
	return h, nil
}

// Remove detaches the node at h and returns it to the free list.
func (l *List[T]) Remove(h Handle) error {
	if !l.validLive(h) {
		return ErrInvalidHandle
	}

	n := &l.nodes[h]
	before, after := n.prev, n.next

	n.value = nil
	n.prev = NoHandle
	n.next = l.firstFree
	l.firstFree = h

	if before == NoHandle {
		l.first = after
	} else {
		l.nodes[before].next = after
	}
	if after == NoHandle {
		l.last = before
	} else {
		l.nodes[after].prev = before
	}

	l.count--
	return nil
}

// Iter returns the handles of all live nodes from first to last, in
// forward order. It is a snapshot, not a live view.
func (l *List[T]) Iter() []Handle {
	handles := make([]Handle, 0, l.count)
	for h := l.first; h != NoHandle; h = l.nodes[h].next {
		handles = append(handles, h)
	}
	return handles
}

// Values returns a snapshot of all live values, from first to last.
func (l *List[T]) Values() []T {
	values := make([]T, 0, l.count)
	for h := l.first; h != NoHandle; h = l.nodes[h].next {
		values = append(values, *l.nodes[h].value)
	}
	return values
}
