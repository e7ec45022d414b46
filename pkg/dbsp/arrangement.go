package dbsp

import (
	"cmp"
	"fmt"

	"github.com/google/btree"
)

// arrangementDegree is the degree of the B-tree backing an arrangement.
const arrangementDegree = 32

// ValDiff is a value with its accumulated multiplicity under a key.
type ValDiff[V cmp.Ordered] struct {
	Val  V
	Diff int64
}

// arrangedTuple is a single (key, value) entry of an arrangement.
type arrangedTuple[K, V cmp.Ordered] struct {
	key  K
	val  V
	diff int64
	// first orders the item before every value stored under key; used as a search pivot only.
	first bool
}

func lessArrangedTuple[K, V cmp.Ordered](a, b arrangedTuple[K, V]) bool {
	if a.key != b.key {
		return cmp.Less(a.key, b.key)
	}
	if a.first || b.first {
		return a.first && !b.first
	}
	return cmp.Less(a.val, b.val)
}

// Arrangement is an indexed relation: a B-tree of (key, value) tuples ordered by key, then by
// value, each with its non-zero multiplicity. Arrangements are the inputs of joins.
//
// Updating a tuple costs O(log n) no matter how many values share its key, so inserting a batch
// is O(b log n) for a batch of size b.
type Arrangement[K, V cmp.Ordered] struct {
	name   string
	index  *btree.BTreeG[arrangedTuple[K, V]]
	keys   map[K]int // key -> number of values
	weight int64
}

// NewArrangement creates an empty arrangement.
func NewArrangement[K, V cmp.Ordered](name string) *Arrangement[K, V] {
	return &Arrangement[K, V]{
		name:  name,
		index: btree.NewG(arrangementDegree, lessArrangedTuple[K, V]),
		keys:  make(map[K]int),
	}
}

// Name returns the name of the arrangement.
func (a *Arrangement[K, V]) Name() string { return a.name }

// Insert merges a batch into the arrangement. The batch is consolidated in place first.
func (a *Arrangement[K, V]) Insert(batch Batch[K, V]) {
	for _, u := range batch.Consolidate() {
		item := arrangedTuple[K, V]{key: u.Key, val: u.Val, diff: u.Diff}
		old, found := a.index.Get(item)
		if found {
			item.diff += old.diff
		}

		switch {
		case item.diff == 0:
			a.index.Delete(item)
			if a.keys[u.Key]--; a.keys[u.Key] == 0 {
				delete(a.keys, u.Key)
			}
		case found:
			a.index.ReplaceOrInsert(item)
		default:
			a.index.ReplaceOrInsert(item)
			a.keys[u.Key]++
		}
		a.weight += u.Diff
	}
}

// Range calls fn for each value stored under key in ascending order until fn returns false.
func (a *Arrangement[K, V]) Range(key K, fn func(vd ValDiff[V]) bool) {
	if a.keys[key] == 0 {
		return
	}
	a.index.AscendGreaterOrEqual(arrangedTuple[K, V]{key: key, first: true}, func(t arrangedTuple[K, V]) bool {
		if t.key != key {
			return false
		}
		return fn(ValDiff[V]{Val: t.val, Diff: t.diff})
	})
}

// Lookup returns the ordered values stored under a key, or nil.
func (a *Arrangement[K, V]) Lookup(key K) []ValDiff[V] {
	n := a.keys[key]
	if n == 0 {
		return nil
	}
	vals := make([]ValDiff[V], 0, n)
	a.Range(key, func(vd ValDiff[V]) bool {
		vals = append(vals, vd)
		return true
	})
	return vals
}

// Ascend calls fn for each key in ascending order with the values stored under it, until fn
// returns false. The vals slice is reused between calls and must not be retained.
func (a *Arrangement[K, V]) Ascend(fn func(key K, vals []ValDiff[V]) bool) {
	var (
		cur     K
		vals    []ValDiff[V]
		stopped bool
	)
	a.index.Ascend(func(t arrangedTuple[K, V]) bool {
		if len(vals) > 0 && t.key != cur {
			if !fn(cur, vals) {
				stopped = true
				return false
			}
			vals = vals[:0]
		}
		cur = t.key
		vals = append(vals, ValDiff[V]{Val: t.val, Diff: t.diff})
		return true
	})
	if !stopped && len(vals) > 0 {
		fn(cur, vals)
	}
}

// Keys returns the number of distinct keys.
func (a *Arrangement[K, V]) Keys() int { return len(a.keys) }

// Len returns the number of distinct (key, value) tuples.
func (a *Arrangement[K, V]) Len() int { return a.index.Len() }

// Size returns the total multiplicity stored in the arrangement.
func (a *Arrangement[K, V]) Size() int64 { return a.weight }

// IsEmpty checks if the arrangement holds no tuples.
func (a *Arrangement[K, V]) IsEmpty() bool { return a.index.Len() == 0 }

// Batch dumps the content of the arrangement as a consolidated batch.
func (a *Arrangement[K, V]) Batch() Batch[K, V] {
	out := make(Batch[K, V], 0, a.index.Len())
	a.index.Ascend(func(t arrangedTuple[K, V]) bool {
		out = append(out, NewUpdate(t.key, t.val, t.diff))
		return true
	})
	return out
}

// String returns a short description of the arrangement.
func (a *Arrangement[K, V]) String() string {
	return fmt.Sprintf("%s[keys=%d,tuples=%d]", a.name, a.Keys(), a.Len())
}
