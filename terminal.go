package flowbatch

import (
	"cmp"
	"context"
	"slices"

	"github.com/flowbatch/flowbatch/internal/application"
	"github.com/flowbatch/flowbatch/internal/domain"
	"github.com/flowbatch/flowbatch/internal/ports"
)

// Collect runs pc's pipeline on the calling goroutine and returns every
// surviving element.
func Collect[T any](pc PCollection[T]) ([]T, error) {
	return run[T](pc, ports.Options{Mode: ports.Sequential})
}

// CollectParallel runs pc's pipeline split across workers goroutines over
// partitions shards (0 lets the engine pick its own defaults).
func CollectParallel[T any](pc PCollection[T], workers, partitions int) ([]T, error) {
	return run[T](pc, ports.Options{Mode: ports.Parallel, Workers: workers, Partitions: partitions})
}

// CollectWithOptions runs pc's pipeline under a caller-assembled
// ports.Options, for callers that also want metrics/tracing wired in.
func CollectWithOptions[T any](pc PCollection[T], opts ports.Options) ([]T, error) {
	return run[T](pc, opts)
}

// CollectSorted runs pc sequentially and sorts the result ascending.
func CollectSorted[T cmp.Ordered](pc PCollection[T]) ([]T, error) {
	out, err := Collect(pc)
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

// CollectParallelSorted runs pc in parallel and sorts the result ascending.
func CollectParallelSorted[T cmp.Ordered](pc PCollection[T], workers, partitions int) ([]T, error) {
	out, err := CollectParallel(pc, workers, partitions)
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

// CollectSortedByKey runs pc sequentially and stably sorts the result by
// key ascending, preserving the relative order of same-key pairs.
func CollectSortedByKey[K cmp.Ordered, V any](pc PCollection[KV[K, V]]) ([]KV[K, V], error) {
	out, err := Collect(pc)
	if err != nil {
		return nil, err
	}
	sortByKey(out)
	return out, nil
}

// CollectParallelSortedByKey runs pc in parallel and stably sorts the
// result by key ascending.
func CollectParallelSortedByKey[K cmp.Ordered, V any](pc PCollection[KV[K, V]], workers, partitions int) ([]KV[K, V], error) {
	out, err := CollectParallel(pc, workers, partitions)
	if err != nil {
		return nil, err
	}
	sortByKey(out)
	return out, nil
}

func sortByKey[K cmp.Ordered, V any](out []KV[K, V]) {
	slices.SortStableFunc(out, func(a, b KV[K, V]) int { return cmp.Compare(a.Key, b.Key) })
}

func run[T any](pc PCollection[T], opts ports.Options) ([]T, error) {
	plan, err := application.BuildPlan(pc.p, pc.id)
	if err != nil {
		return nil, err
	}

	var result domain.Partition
	if opts.Mode == ports.Parallel {
		result, err = application.RunParallel(context.Background(), plan, opts)
	} else {
		result, err = application.RunSequential(context.Background(), plan, opts)
	}
	if err != nil {
		return nil, err
	}
	return normalizePartition[T](result), nil
}

// normalizePartition reconciles the two shapes a Plan's final result can
// take: a single typed partition (the common case), or -- only possible
// when the plan's last step is not a barrier, since barriers always
// collapse back to one partition via Finalize -- a slice of leftover
// per-shard partitions the parallel executor had nothing left to reduce,
// which it hands back verbatim (see application.concatUnknownPartitions)
// for exactly this terminal to concatenate.
func normalizePartition[T any](result domain.Partition) []T {
	if result == nil {
		return nil
	}
	if single, ok := result.([]T); ok {
		return single
	}
	if multi, ok := result.([]domain.Partition); ok {
		out := make([]T, 0, len(multi))
		for _, p := range multi {
			part, ok := p.([]T)
			if !ok {
				domain.PanicEngineBug("collect: unexpected partial result shape %T", p)
			}
			out = append(out, part...)
		}
		return out
	}
	domain.PanicEngineBug("collect: unexpected result shape %T", result)
	return nil
}
