// Package pnset is a tiny generic ordered-set helper used by the ACK
// Manager for its pending-ack set, a deduplicated collection of packet
// numbers it repeatedly sorts in ascending order. (The Packet Tracker keeps
// its own maps and does not use it.) Built on
// golang.org/x/exp/constraints rather than a per-type helper, the
// way Xaellon-quic's bbr_sender.go reaches for constraints instead of a
// hand-rolled min/max for every numeric type it touches.
package pnset

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Set is an unordered collection of distinct values of an integer type T,
// with Sorted() producing an ascending snapshot on demand.
type Set[T constraints.Integer] struct {
	items map[T]struct{}
}

// New returns an empty set.
func New[T constraints.Integer]() *Set[T] {
	return &Set[T]{items: make(map[T]struct{})}
}

// Add inserts v, a no-op if v is already present.
func (s *Set[T]) Add(v T) {
	s.items[v] = struct{}{}
}

// Remove deletes v, a no-op if v isn't present.
func (s *Set[T]) Remove(v T) {
	delete(s.items, v)
}

// Contains reports whether v is in the set.
func (s *Set[T]) Contains(v T) bool {
	_, ok := s.items[v]
	return ok
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return len(s.items)
}

// Sorted returns all elements in ascending order.
func (s *Set[T]) Sorted() []T {
	out := make([]T, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
