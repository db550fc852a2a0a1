package flowbatch

import (
	"fmt"

	"github.com/flowbatch/flowbatch/infrastructure/sources"
	"github.com/flowbatch/flowbatch/internal/domain"
)

// PCollection[T] is a typed handle onto one node of a Pipeline's DAG: the
// pipeline it belongs to, the node's id, and the TypeTag of the elements
// flowing through it. Combinators are free functions, not methods, because
// Go forbids a method from introducing type parameters beyond its
// receiver's.
type PCollection[T any] struct {
	p   *Pipeline
	id  domain.NodeID
	tag domain.TypeTag
}

// FromSlice registers an in-memory slice as a Source node.
func FromSlice[T any](p *Pipeline, data []T) PCollection[T] {
	return FromSource[T](p, data, sources.NewSliceVecOps[T](), "Source")
}

// FromSource registers a Source node from a caller-supplied payload and
// VecOps vtable -- the general form FromSlice is built on top of, used by
// the CSV/JSONL shard sources in infrastructure/sources.
func FromSource[T any](p *Pipeline, payload any, vecOps domain.VecOps, label string) PCollection[T] {
	tag := domain.TypeTagOf[T]()
	id := p.InsertSource(payload, vecOps, tag, label)
	return PCollection[T]{p: p, id: id, tag: tag}
}

// Map applies f to every element.
func Map[T, O any](pc PCollection[T], f func(T) O) PCollection[O] {
	inTag := domain.TypeTagOf[T]()
	outTag := domain.TypeTagOf[O]()
	op := domain.DynOpFunc(func(part domain.Partition) domain.Partition {
		in, ok := part.([]T)
		if !ok {
			domain.PanicEngineBug("map: expected []%s partition, got %T", inTag.Name, part)
		}
		out := make([]O, len(in))
		for i, v := range in {
			out[i] = f(v)
		}
		return out
	})
	id := pc.p.InsertStateless([]domain.DynOp{op}, inTag, outTag, "Map")
	connectOrPanic(pc.p.Connect(pc.id, id))
	return PCollection[O]{p: pc.p, id: id, tag: outTag}
}

// Filter keeps only elements for which pred returns true.
func Filter[T any](pc PCollection[T], pred func(T) bool) PCollection[T] {
	tag := domain.TypeTagOf[T]()
	op := domain.DynOpFunc(func(part domain.Partition) domain.Partition {
		in, ok := part.([]T)
		if !ok {
			domain.PanicEngineBug("filter: expected []%s partition, got %T", tag.Name, part)
		}
		out := make([]T, 0, len(in))
		for _, v := range in {
			if pred(v) {
				out = append(out, v)
			}
		}
		return out
	})
	id := pc.p.InsertStateless([]domain.DynOp{op}, tag, tag, "Filter")
	connectOrPanic(pc.p.Connect(pc.id, id))
	return PCollection[T]{p: pc.p, id: id, tag: tag}
}

// FlatMap applies f to every element and concatenates the results.
func FlatMap[T, O any](pc PCollection[T], f func(T) []O) PCollection[O] {
	inTag := domain.TypeTagOf[T]()
	outTag := domain.TypeTagOf[O]()
	op := domain.DynOpFunc(func(part domain.Partition) domain.Partition {
		in, ok := part.([]T)
		if !ok {
			domain.PanicEngineBug("flat_map: expected []%s partition, got %T", inTag.Name, part)
		}
		var out []O
		for _, v := range in {
			out = append(out, f(v)...)
		}
		return out
	})
	id := pc.p.InsertStateless([]domain.DynOp{op}, inTag, outTag, "FlatMap")
	connectOrPanic(pc.p.Connect(pc.id, id))
	return PCollection[O]{p: pc.p, id: id, tag: outTag}
}

// BatchMap applies f to successive chunks of up to batchSize elements. f
// must return exactly as many outputs as the chunk it was given; a
// violation surfaces as an *domain.ExecutionError from a terminal Collect*
// call instead of silently truncating or padding the output.
func BatchMap[T, O any](pc PCollection[T], batchSize int, f func([]T) []O) PCollection[O] {
	if batchSize <= 0 {
		batchSize = 1
	}
	inTag := domain.TypeTagOf[T]()
	outTag := domain.TypeTagOf[O]()
	op := domain.DynOpFunc(func(part domain.Partition) domain.Partition {
		in, ok := part.([]T)
		if !ok {
			domain.PanicEngineBug("batch_map: expected []%s partition, got %T", inTag.Name, part)
		}
		out := make([]O, 0, len(in))
		for i := 0; i < len(in); i += batchSize {
			end := i + batchSize
			if end > len(in) {
				end = len(in)
			}
			chunk := in[i:end]
			res := f(chunk)
			if len(res) != len(chunk) {
				panic(&domain.ExecutionError{
					Stage:  "BatchMap",
					Reason: fmt.Sprintf("batch of length %d produced %d outputs, which violates BatchMap's length-preservation contract", len(chunk), len(res)),
				})
			}
			out = append(out, res...)
		}
		return out
	})
	id := pc.p.InsertStateless([]domain.DynOp{op}, inTag, outTag, "BatchMap")
	connectOrPanic(pc.p.Connect(pc.id, id))
	return PCollection[O]{p: pc.p, id: id, tag: outTag}
}
