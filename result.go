package flowbatch

import "github.com/flowbatch/flowbatch/internal/domain"

// Result is a sum type (ok|err) that lets a single element's failure ride
// through the dataflow as data instead of aborting the run at the point of
// failure, so a terminal can decide what to do with it. TryMap and
// TryFlatMap are the two operators that produce it.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Fail wraps an error; Value is T's zero value.
func Fail[T any](err error) Result[T] {
	var zero T
	return Result[T]{Value: zero, Err: err}
}

// IsErr reports whether r carries an error.
func (r Result[T]) IsErr() bool { return r.Err != nil }

// TryMap applies a fallible f to every element, turning a failure into a
// Result rather than aborting the stage.
func TryMap[T, O any](pc PCollection[T], f func(T) (O, error)) PCollection[Result[O]] {
	return Map(pc, func(t T) Result[O] {
		v, err := f(t)
		if err != nil {
			return Fail[O](err)
		}
		return Ok(v)
	})
}

// TryFlatMap applies a fallible f that produces several outputs per
// element: a success contributes one Ok Result per output, and a failure
// contributes a single Result carrying that element's error.
func TryFlatMap[T, O any](pc PCollection[T], f func(T) ([]O, error)) PCollection[Result[O]] {
	return FlatMap(pc, func(t T) []Result[O] {
		vs, err := f(t)
		if err != nil {
			return []Result[O]{Fail[O](err)}
		}
		out := make([]Result[O], len(vs))
		for i, v := range vs {
			out[i] = Ok(v)
		}
		return out
	})
}

// CollectFailFast runs pc sequentially and promotes the first element-level
// error it finds into the call's returned error, instead of returning a
// slice of Results for the caller to scan itself.
func CollectFailFast[T any](pc PCollection[Result[T]]) ([]T, error) {
	results, err := Collect(pc)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(results))
	for _, r := range results {
		if r.IsErr() {
			return nil, &domain.ExecutionError{Stage: "CollectFailFast", Reason: "an element failed", Cause: r.Err}
		}
		out = append(out, r.Value)
	}
	return out, nil
}
