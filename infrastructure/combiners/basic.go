package combiners

import "cmp"

// Sum accumulates values of T by addition. The accumulator and output are
// both T; the identity is T's zero value, so an empty group sums to zero
// rather than being undefined.
type Sum[T Number] struct{}

func (Sum[T]) Create() T              { var zero T; return zero }
func (Sum[T]) AddInput(acc T, v T) T  { return acc + v }
func (Sum[T]) Merge(acc T, other T) T { return acc + other }
func (Sum[T]) Finish(acc T) T         { return acc }

// BuildFromGroup sums the whole slice in one pass instead of folding one
// AddInput at a time, the fast path the planner's lift-detection rule
// reaches for when this combiner is fed directly from a GroupByKey.
func (Sum[T]) BuildFromGroup(values []T) T {
	var sum T
	for _, v := range values {
		sum += v
	}
	return sum
}

// Option represents an optional value: Min and Max have no sensible
// identity element, so their accumulator and output are both Option[T],
// with Present=false standing in for "no input seen yet."
type Option[T any] struct {
	Value   T
	Present bool
}

func Some[T any](v T) Option[T] { return Option[T]{Value: v, Present: true} }
func None[T any]() Option[T]    { return Option[T]{} }

// Min tracks the smallest value seen per key. An empty group's output is
// None.
type Min[T cmp.Ordered] struct{}

func (Min[T]) Create() Option[T] { return None[T]() }

func (Min[T]) AddInput(acc Option[T], v T) Option[T] {
	if !acc.Present || v < acc.Value {
		return Some(v)
	}
	return acc
}

func (Min[T]) Merge(acc, other Option[T]) Option[T] {
	if !other.Present {
		return acc
	}
	if !acc.Present || other.Value < acc.Value {
		return other
	}
	return acc
}

func (Min[T]) Finish(acc Option[T]) Option[T] { return acc }

func (c Min[T]) BuildFromGroup(values []T) Option[T] {
	acc := c.Create()
	for _, v := range values {
		acc = c.AddInput(acc, v)
	}
	return acc
}

// Max tracks the largest value seen per key. An empty group's output is
// None.
type Max[T cmp.Ordered] struct{}

func (Max[T]) Create() Option[T] { return None[T]() }

func (Max[T]) AddInput(acc Option[T], v T) Option[T] {
	if !acc.Present || v > acc.Value {
		return Some(v)
	}
	return acc
}

func (Max[T]) Merge(acc, other Option[T]) Option[T] {
	if !other.Present {
		return acc
	}
	if !acc.Present || other.Value > acc.Value {
		return other
	}
	return acc
}

func (Max[T]) Finish(acc Option[T]) Option[T] { return acc }

func (c Max[T]) BuildFromGroup(values []T) Option[T] {
	acc := c.Create()
	for _, v := range values {
		acc = c.AddInput(acc, v)
	}
	return acc
}

// Count counts values per key regardless of their type.
type Count[V any] struct{}

func (Count[V]) Create() uint64                   { return 0 }
func (Count[V]) AddInput(acc uint64, _ V) uint64  { return acc + 1 }
func (Count[V]) Merge(acc, other uint64) uint64   { return acc + other }
func (Count[V]) Finish(acc uint64) uint64         { return acc }
func (Count[V]) BuildFromGroup(values []V) uint64 { return uint64(len(values)) }
