package combiners

import (
	"container/heap"
	"math"
)

// PriorityReservoir implements priority-based reservoir sampling: every
// value is assigned a priority derived from a seeded hash of the value
// itself, and the k highest-priority values per key survive. Keying the
// priority off the value's content (rather than its arrival position)
// makes the sample independent of how the input happened to be
// partitioned, which every built-in combiner must preserve so merging
// partial results stays order-independent. An empty group's output is an
// empty slice.
type PriorityReservoir[T any] struct {
	K      int
	Seed   uint64
	HashFn func(T) uint64
}

// NewPriorityReservoir builds a reservoir keeping the k highest-priority
// values, where priority(v) = -ln(U) and U is hashFn(v) mixed with seed,
// projected onto the open unit interval.
func NewPriorityReservoir[T any](k int, seed uint64, hashFn func(T) uint64) PriorityReservoir[T] {
	if k < 1 {
		k = 1
	}
	return PriorityReservoir[T]{K: k, Seed: seed, HashFn: hashFn}
}

func (c PriorityReservoir[T]) priorityOf(v T) float64 {
	mixed := c.HashFn(v) ^ (c.Seed * 0x9E3779B97F4A7C15)
	u := float64(mixed) / float64(math.MaxUint64)
	if u <= 0 {
		u = 1e-18
	}
	return -math.Log(u)
}

type reservoirItem[T any] struct {
	priority float64
	value    T
}

// reservoirHeap is a min-heap on priority: the root is the weakest item
// currently kept, the one evicted when a higher-priority value arrives.
// Bounding it to size K is what makes the overall reservoir behave like a
// max-heap over priority from the caller's point of view.
type reservoirHeap[T any] []reservoirItem[T]

func (h reservoirHeap[T]) Len() int           { return len(h) }
func (h reservoirHeap[T]) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h reservoirHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *reservoirHeap[T]) Push(x any)        { *h = append(*h, x.(reservoirItem[T])) }
func (h *reservoirHeap[T]) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

type reservoirAcc[T any] struct {
	heap reservoirHeap[T]
}

func (c PriorityReservoir[T]) Create() reservoirAcc[T] { return reservoirAcc[T]{} }

func (c PriorityReservoir[T]) offer(acc reservoirAcc[T], item reservoirItem[T]) reservoirAcc[T] {
	h := &acc.heap
	if h.Len() < c.K {
		heap.Push(h, item)
		return acc
	}
	if item.priority > (*h)[0].priority {
		heap.Pop(h)
		heap.Push(h, item)
	}
	return acc
}

func (c PriorityReservoir[T]) AddInput(acc reservoirAcc[T], v T) reservoirAcc[T] {
	return c.offer(acc, reservoirItem[T]{priority: c.priorityOf(v), value: v})
}

func (c PriorityReservoir[T]) Merge(acc, other reservoirAcc[T]) reservoirAcc[T] {
	for _, item := range other.heap {
		acc = c.offer(acc, item)
	}
	return acc
}

func (c PriorityReservoir[T]) Finish(acc reservoirAcc[T]) []T {
	out := make([]T, len(acc.heap))
	for i, item := range acc.heap {
		out[i] = item.value
	}
	return out
}

func (c PriorityReservoir[T]) BuildFromGroup(values []T) reservoirAcc[T] {
	acc := c.Create()
	for _, v := range values {
		acc = c.AddInput(acc, v)
	}
	return acc
}
