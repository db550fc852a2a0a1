package flowbatch

import "github.com/flowbatch/flowbatch/internal/domain"

// KV is a key-value pair. Go has no native tuple type, so every keyed
// PCollection in this package is a PCollection[KV[K, V]] rather than
// PCollection[(K, V)].
type KV[K any, V any] struct {
	Key   K
	Value V
}

// KeyBy derives a key for every element, turning PCollection[T] into
// PCollection[KV[K, T]].
func KeyBy[T any, K any](pc PCollection[T], keyFn func(T) K) PCollection[KV[K, T]] {
	return Map(pc, func(t T) KV[K, T] { return KV[K, T]{Key: keyFn(t), Value: t} })
}

// MapValues applies f to the value half of every pair, leaving keys alone.
func MapValues[K any, V, O any](pc PCollection[KV[K, V]], f func(V) O) PCollection[KV[K, O]] {
	return Map(pc, func(kv KV[K, V]) KV[K, O] { return KV[K, O]{Key: kv.Key, Value: f(kv.Value)} })
}

// FilterValues keeps only pairs whose value satisfies pred.
func FilterValues[K any, V any](pc PCollection[KV[K, V]], pred func(V) bool) PCollection[KV[K, V]] {
	return Filter(pc, func(kv KV[K, V]) bool { return pred(kv.Value) })
}

// GroupByKey groups values by key. It is a barrier: every partition's
// values are bucketed locally, then the per-partition buckets are merged by
// concatenation into one (K, []V) collection. The order of values within a
// key is unspecified and may vary with partitioning.
func GroupByKey[K comparable, V any](pc PCollection[KV[K, V]]) PCollection[KV[K, []V]] {
	inTag := domain.TypeTagOf[KV[K, V]]()
	outTag := domain.TypeTagOf[KV[K, []V]]()

	local := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		pairs, ok := part.([]KV[K, V])
		if !ok {
			domain.PanicEngineBug("group_by_key local: expected []KV partition, got %T", part)
		}
		groups := make(map[K][]V, len(pairs))
		for _, kv := range pairs {
			groups[kv.Key] = append(groups[kv.Key], kv.Value)
		}
		return groups
	})

	merge := domain.MergeFn(func(parts []domain.Partition) domain.Partition {
		acc := make(map[K][]V)
		for _, p := range parts {
			m, ok := p.(map[K][]V)
			if !ok {
				domain.PanicEngineBug("group_by_key merge: expected map[K][]V partition, got %T", p)
			}
			for k, vs := range m {
				acc[k] = append(acc[k], vs...)
			}
		}
		return acc
	})

	finalize := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		m, ok := part.(map[K][]V)
		if !ok {
			domain.PanicEngineBug("group_by_key finalize: expected map[K][]V partition, got %T", part)
		}
		out := make([]KV[K, []V], 0, len(m))
		for k, vs := range m {
			out = append(out, KV[K, []V]{Key: k, Value: vs})
		}
		return out
	})

	id := pc.p.InsertBarrier(false, local, merge, finalize, inTag, outTag, "GroupByKey")
	connectOrPanic(pc.p.Connect(pc.id, id))
	return PCollection[KV[K, []V]]{p: pc.p, id: id, tag: outTag}
}

// CombineValues folds all values for each key through c directly from the
// raw (K, V) stream, one (K, O) pair per distinct key, without a separate
// GroupByKey materialization step -- this already is the efficient form the
// planner's lift-detection rule produces when a GroupByKey is fused into a
// CombineValues (see CombineValuesLifted).
func CombineValues[K comparable, V, A, O any](pc PCollection[KV[K, V]], c domain.CombineFn[V, A, O]) PCollection[KV[K, O]] {
	inTag := domain.TypeTagOf[KV[K, V]]()
	outTag := domain.TypeTagOf[KV[K, O]]()

	local := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		pairs, ok := part.([]KV[K, V])
		if !ok {
			domain.PanicEngineBug("combine_values local: expected []KV partition, got %T", part)
		}
		acc := make(map[K]A, len(pairs))
		for _, kv := range pairs {
			if existing, found := acc[kv.Key]; found {
				acc[kv.Key] = c.AddInput(existing, kv.Value)
			} else {
				acc[kv.Key] = c.AddInput(c.Create(), kv.Value)
			}
		}
		return acc
	})

	merge := domain.MergeFn(func(parts []domain.Partition) domain.Partition {
		acc := make(map[K]A)
		for _, p := range parts {
			m, ok := p.(map[K]A)
			if !ok {
				domain.PanicEngineBug("combine_values merge: expected map[K]A partition, got %T", p)
			}
			for k, a := range m {
				if existing, found := acc[k]; found {
					acc[k] = c.Merge(existing, a)
				} else {
					acc[k] = a
				}
			}
		}
		return acc
	})

	finalize := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		m, ok := part.(map[K]A)
		if !ok {
			domain.PanicEngineBug("combine_values finalize: expected map[K]A partition, got %T", part)
		}
		out := make([]KV[K, O], 0, len(m))
		for k, a := range m {
			out = append(out, KV[K, O]{Key: k, Value: c.Finish(a)})
		}
		return out
	})

	id := pc.p.InsertBarrier(true, local, merge, finalize, inTag, outTag, "CombineValues")
	connectOrPanic(pc.p.Connect(pc.id, id))
	return PCollection[KV[K, O]]{p: pc.p, id: id, tag: outTag}
}

// CombineValuesLifted folds an already-grouped (K, []V) collection through
// a LiftableCombiner, one output per key, via BuildFromGroup. When grouped
// was produced by GroupByKey immediately upstream of this call, the planner
// fuses the two barriers and runs BuildFromGroup directly over each
// partition's raw (K, V) pairs instead, skipping the GroupByKey
// materialization entirely -- this is what makes
// `.GroupByKey()` followed by `.CombineValuesLifted(c)` equal in result,
// but cheaper in execution, to `.CombineValues(c)`.
func CombineValuesLifted[K comparable, V, A, O any](grouped PCollection[KV[K, []V]], c domain.LiftableCombiner[V, A, O]) PCollection[KV[K, O]] {
	inTag := domain.TypeTagOf[KV[K, []V]]()
	outTag := domain.TypeTagOf[KV[K, O]]()

	local := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		groups, ok := part.([]KV[K, []V])
		if !ok {
			domain.PanicEngineBug("combine_values_lifted local: expected []KV[K,[]V] partition, got %T", part)
		}
		acc := make(map[K]A, len(groups))
		for _, g := range groups {
			acc[g.Key] = c.BuildFromGroup(g.Value)
		}
		return acc
	})

	liftedLocal := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		pairs, ok := part.([]KV[K, V])
		if !ok {
			domain.PanicEngineBug("combine_values_lifted fused local: expected []KV[K,V] partition, got %T", part)
		}
		groups := make(map[K][]V, len(pairs))
		for _, kv := range pairs {
			groups[kv.Key] = append(groups[kv.Key], kv.Value)
		}
		acc := make(map[K]A, len(groups))
		for k, vs := range groups {
			acc[k] = c.BuildFromGroup(vs)
		}
		return acc
	})

	merge := domain.MergeFn(func(parts []domain.Partition) domain.Partition {
		acc := make(map[K]A)
		for _, p := range parts {
			m, ok := p.(map[K]A)
			if !ok {
				domain.PanicEngineBug("combine_values_lifted merge: expected map[K]A partition, got %T", p)
			}
			for k, a := range m {
				if existing, found := acc[k]; found {
					acc[k] = c.Merge(existing, a)
				} else {
					acc[k] = a
				}
			}
		}
		return acc
	})

	finalize := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		m, ok := part.(map[K]A)
		if !ok {
			domain.PanicEngineBug("combine_values_lifted finalize: expected map[K]A partition, got %T", part)
		}
		out := make([]KV[K, O], 0, len(m))
		for k, a := range m {
			out = append(out, KV[K, O]{Key: k, Value: c.Finish(a)})
		}
		return out
	})

	id := grouped.p.InsertCombineValuesLiftable(local, liftedLocal, merge, finalize, inTag, outTag, "CombineValuesLifted")
	connectOrPanic(grouped.p.Connect(grouped.id, id))
	return PCollection[KV[K, O]]{p: grouped.p, id: id, tag: outTag}
}

// CombineGlobally folds an entire PCollection[T] through c into a single O,
// returned as a one-element PCollection[O]. fanout is how many partials
// each group of the parallel executor's associative-tree merge folds per
// round; 0 defers to ports.Options.Fanout, or, when that is also 0, to
// ceil(sqrt(partitions)).
func CombineGlobally[T, A, O any](pc PCollection[T], c domain.CombineFn[T, A, O], fanout int) PCollection[O] {
	inTag := domain.TypeTagOf[T]()
	outTag := domain.TypeTagOf[O]()

	local := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		items, ok := part.([]T)
		if !ok {
			domain.PanicEngineBug("combine_globally local: expected []%s partition, got %T", inTag.Name, part)
		}
		acc := c.Create()
		for _, v := range items {
			acc = c.AddInput(acc, v)
		}
		return acc
	})

	merge := domain.MergeFn(func(parts []domain.Partition) domain.Partition {
		if len(parts) == 0 {
			return c.Create()
		}
		acc, ok := parts[0].(A)
		if !ok {
			domain.PanicEngineBug("combine_globally merge: expected accumulator partition, got %T", parts[0])
		}
		for _, p := range parts[1:] {
			other, ok := p.(A)
			if !ok {
				domain.PanicEngineBug("combine_globally merge: expected accumulator partition, got %T", p)
			}
			acc = c.Merge(acc, other)
		}
		return acc
	})

	finalize := domain.BarrierFn(func(part domain.Partition) domain.Partition {
		acc, ok := part.(A)
		if !ok {
			domain.PanicEngineBug("combine_globally finalize: expected accumulator partition, got %T", part)
		}
		return []O{c.Finish(acc)}
	})

	id := pc.p.InsertCombineGlobal(local, merge, finalize, fanout, inTag, outTag, "CombineGlobally")
	connectOrPanic(pc.p.Connect(pc.id, id))
	return PCollection[O]{p: pc.p, id: id, tag: outTag}
}
