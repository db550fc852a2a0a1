package flowbatch

// Broadcast is a side input: a small PCollection[T] materialized once
// (sequentially, regardless of how the main pipeline is later run) and
// handed to a Map/Filter closure as an immutable slice. It is a thin helper
// over Collect, not a new Node kind.
type Broadcast[T any] struct {
	values []T
}

// NewBroadcast materializes pc and returns a Broadcast wrapping its
// elements.
func NewBroadcast[T any](pc PCollection[T]) (Broadcast[T], error) {
	values, err := Collect(pc)
	if err != nil {
		return Broadcast[T]{}, err
	}
	return Broadcast[T]{values: values}, nil
}

// Values returns the broadcast slice.
func (b Broadcast[T]) Values() []T { return b.values }

// MapWithSide is Map with an extra read-only side input passed to f.
func MapWithSide[T, S, O any](pc PCollection[T], side Broadcast[S], f func(T, []S) O) PCollection[O] {
	return Map(pc, func(t T) O { return f(t, side.values) })
}

// FilterWithSide is Filter with an extra read-only side input passed to
// pred.
func FilterWithSide[T, S any](pc PCollection[T], side Broadcast[S], pred func(T, []S) bool) PCollection[T] {
	return Filter(pc, func(t T) bool { return pred(t, side.values) })
}
