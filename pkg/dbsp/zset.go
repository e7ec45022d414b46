package dbsp

import (
	"fmt"
	"slices"
	"strings"
)

// ZSet implements Z-sets over comparable tuples: a finite map from tuples to (possibly negative)
// integer multiplicities. Tuples with multiplicity zero are never stored.
type ZSet[T comparable] struct {
	counts map[T]int64 // tuple -> multiplicity
}

// NewZSet creates an empty ZSet.
func NewZSet[T comparable]() *ZSet[T] {
	return &ZSet[T]{counts: make(map[T]int64)}
}

// AddMutate adds a tuple to the ZSet with the given multiplicity by modifying the Z-set in place.
// This is the core operation for building Z-sets.
func (z *ZSet[T]) AddMutate(t T, count int64) {
	if count == 0 {
		return
	}

	n := z.counts[t] + count
	if n == 0 {
		delete(z.counts, t)
		return
	}
	z.counts[t] = n
}

// Elements returns the tuples with positive multiplicity. If cmp is not nil the result is sorted
// with it.
func (z *ZSet[T]) Elements(cmp func(a, b T) int) []T {
	result := make([]T, 0, len(z.counts))
	for t, count := range z.counts {
		if count > 0 {
			result = append(result, t)
		}
	}
	if cmp != nil {
		slices.SortFunc(result, cmp)
	}
	return result
}

// IsZero checks if the Z-set is empty.
func (z *ZSet[T]) IsZero() bool {
	return len(z.counts) == 0
}

// GetMultiplicity returns the multiplicity of a tuple, zero if the tuple is not in the Z-set.
func (z *ZSet[T]) GetMultiplicity(t T) int64 {
	return z.counts[t]
}

// Contains checks if a tuple exists in the Z-set with positive multiplicity.
func (z *ZSet[T]) Contains(t T) bool {
	return z.counts[t] > 0
}

// String returns a string representation of the Z-set for debugging.
func (z *ZSet[T]) String() string {
	if z.IsZero() {
		return "∅"
	}

	entries := make([]string, 0, len(z.counts))
	for t, count := range z.counts {
		entries = append(entries, fmt.Sprintf("%v×%d", t, count))
	}
	slices.Sort(entries)

	return "{" + strings.Join(entries, ", ") + "}"
}
