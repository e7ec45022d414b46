package dbsp

import (
	"cmp"
	"fmt"
	"slices"
)

// Tuple is a keyed pair. Arrangements index tuples by Key.
type Tuple[K, V cmp.Ordered] struct {
	Key K
	Val V
}

// String returns the tuple as "(key,val)".
func (t Tuple[K, V]) String() string {
	return fmt.Sprintf("(%v,%v)", t.Key, t.Val)
}

// Flip swaps the key and the value of a tuple.
func Flip[T cmp.Ordered](t Tuple[T, T]) Tuple[T, T] {
	return Tuple[T, T]{Key: t.Val, Val: t.Key}
}

// CompareTuples orders tuples by key, then by value.
func CompareTuples[K, V cmp.Ordered](a, b Tuple[K, V]) int {
	if c := cmp.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	return cmp.Compare(a.Val, b.Val)
}

// Update is a tuple with a signed multiplicity.
type Update[K, V cmp.Ordered] struct {
	Tuple[K, V]
	Diff int64
}

// NewUpdate creates an update for the (key, val) tuple.
func NewUpdate[K, V cmp.Ordered](key K, val V, diff int64) Update[K, V] {
	return Update[K, V]{Tuple: Tuple[K, V]{Key: key, Val: val}, Diff: diff}
}

// Batch is an unordered sequence of updates. The same tuple may appear more than once; see
// Consolidate.
type Batch[K, V cmp.Ordered] []Update[K, V]

// Consolidate sorts the batch by key and value, sums the multiplicities of equal tuples and drops
// the tuples whose multiplicity sums to zero. The batch is rewritten in place and the consolidated
// prefix is returned.
func (b Batch[K, V]) Consolidate() Batch[K, V] {
	if len(b) == 0 {
		return b
	}

	slices.SortFunc(b, func(x, y Update[K, V]) int { return CompareTuples(x.Tuple, y.Tuple) })

	out := b[:0]
	for _, u := range b {
		if n := len(out); n > 0 && out[n-1].Tuple == u.Tuple {
			out[n-1].Diff += u.Diff
			continue
		}
		if n := len(out); n > 0 && out[n-1].Diff == 0 {
			out[n-1] = u
			continue
		}
		out = append(out, u)
	}
	if n := len(out); n > 0 && out[n-1].Diff == 0 {
		out = out[:n-1]
	}

	return out
}

// Weight returns the sum of the multiplicities in the batch.
func (b Batch[K, V]) Weight() int64 {
	var w int64
	for _, u := range b {
		w += u.Diff
	}
	return w
}

