package combiners

import (
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// DistinctCount counts the number of distinct values seen per key exactly,
// using a set accumulator. T must be comparable so it can key a Go map.
// An empty group's output is 0.
type DistinctCount[T comparable] struct{}

func (DistinctCount[T]) Create() map[T]struct{} { return make(map[T]struct{}) }

func (DistinctCount[T]) AddInput(acc map[T]struct{}, v T) map[T]struct{} {
	acc[v] = struct{}{}
	return acc
}

func (DistinctCount[T]) Merge(acc, other map[T]struct{}) map[T]struct{} {
	for v := range other {
		acc[v] = struct{}{}
	}
	return acc
}

func (DistinctCount[T]) Finish(acc map[T]struct{}) uint64 { return uint64(len(acc)) }

func (DistinctCount[T]) BuildFromGroup(values []T) map[T]struct{} {
	acc := make(map[T]struct{}, len(values))
	for _, v := range values {
		acc[v] = struct{}{}
	}
	return acc
}

// KMVApproxDistinctCount estimates the number of distinct values per key
// with a k-minimum-values sketch: it keeps the k smallest of a uniform hash
// over every value seen and estimates the distinct count as
// (k-1) / kth_smallest_as_unit_interval. Fewer than k distinct hashes
// observed means the exact count is returned instead of an estimate.
type KMVApproxDistinctCount[T any] struct {
	K      int
	HashFn func(T) uint64
}

// NewKMVApproxDistinctCount builds a sketch keeping the k smallest hashes.
// hashFn must map equal values to equal hashes, and should otherwise behave
// like a uniform hash over [0, 2^64) for the estimator to be accurate.
func NewKMVApproxDistinctCount[T any](k int, hashFn func(T) uint64) KMVApproxDistinctCount[T] {
	if k < 1 {
		k = 1
	}
	return KMVApproxDistinctCount[T]{K: k, HashFn: hashFn}
}

// StringHash is a convenience HashFn for values whose distinctness is fully
// captured by a string projection.
func StringHash[T any](toString func(T) string) func(T) uint64 {
	return func(v T) uint64 { return xxhash.Sum64String(toString(v)) }
}

type kmvAcc struct {
	hashes []uint64 // sorted ascending, len <= K, no duplicates
}

func (c KMVApproxDistinctCount[T]) Create() kmvAcc { return kmvAcc{} }

func (c KMVApproxDistinctCount[T]) AddInput(acc kmvAcc, v T) kmvAcc {
	return c.insert(acc, c.HashFn(v))
}

func (c KMVApproxDistinctCount[T]) Merge(acc, other kmvAcc) kmvAcc {
	for _, h := range other.hashes {
		acc = c.insert(acc, h)
	}
	return acc
}

func (c KMVApproxDistinctCount[T]) insert(acc kmvAcc, h uint64) kmvAcc {
	i := sort.Search(len(acc.hashes), func(i int) bool { return acc.hashes[i] >= h })
	if i < len(acc.hashes) && acc.hashes[i] == h {
		return acc
	}
	if len(acc.hashes) < c.K {
		hashes := make([]uint64, len(acc.hashes)+1)
		copy(hashes, acc.hashes[:i])
		hashes[i] = h
		copy(hashes[i+1:], acc.hashes[i:])
		acc.hashes = hashes
		return acc
	}
	if i >= c.K {
		return acc
	}
	hashes := make([]uint64, c.K)
	copy(hashes, acc.hashes[:i])
	hashes[i] = h
	copy(hashes[i+1:], acc.hashes[i:c.K-1])
	acc.hashes = hashes
	return acc
}

func (c KMVApproxDistinctCount[T]) Finish(acc kmvAcc) float64 {
	if len(acc.hashes) < c.K {
		return float64(len(acc.hashes))
	}
	kth := acc.hashes[c.K-1]
	unit := float64(kth) / float64(math.MaxUint64)
	if unit == 0 {
		return float64(c.K)
	}
	return float64(c.K-1) / unit
}

func (c KMVApproxDistinctCount[T]) BuildFromGroup(values []T) kmvAcc {
	acc := c.Create()
	for _, v := range values {
		acc = c.AddInput(acc, v)
	}
	return acc
}
