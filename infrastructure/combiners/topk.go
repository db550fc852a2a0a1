package combiners

import (
	"cmp"
	"container/heap"
	"slices"
)

// TopK keeps the k largest values seen per key, using a bounded min-heap so
// a new value only has to beat the current smallest kept value to earn a
// spot. Finish returns them in descending order. An empty group's output is
// an empty slice.
type TopK[T cmp.Ordered] struct {
	K int
}

func NewTopK[T cmp.Ordered](k int) TopK[T] {
	if k < 1 {
		k = 1
	}
	return TopK[T]{K: k}
}

type topKHeap[T cmp.Ordered] []T

func (h topKHeap[T]) Len() int            { return len(h) }
func (h topKHeap[T]) Less(i, j int) bool  { return h[i] < h[j] }
func (h topKHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *topKHeap[T]) Push(x any)         { *h = append(*h, x.(T)) }
func (h *topKHeap[T]) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

func (c TopK[T]) Create() topKHeap[T] { return nil }

func (c TopK[T]) AddInput(acc topKHeap[T], v T) topKHeap[T] {
	h := &acc
	if h.Len() < c.K {
		heap.Push(h, v)
		return *h
	}
	if v > (*h)[0] {
		heap.Pop(h)
		heap.Push(h, v)
	}
	return *h
}

func (c TopK[T]) Merge(acc, other topKHeap[T]) topKHeap[T] {
	for _, v := range other {
		acc = c.AddInput(acc, v)
	}
	return acc
}

func (c TopK[T]) Finish(acc topKHeap[T]) []T {
	out := slices.Clone([]T(acc))
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(b, a) })
	return out
}

func (c TopK[T]) BuildFromGroup(values []T) topKHeap[T] {
	acc := c.Create()
	for _, v := range values {
		acc = c.AddInput(acc, v)
	}
	return acc
}
