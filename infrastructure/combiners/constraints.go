// Package combiners is the built-in CombineFn/LiftableCombiner library:
// Sum, Min, Max, Count, AverageF64, DistinctCount, KMVApproxDistinctCount,
// TopK, and PriorityReservoir. Each is a generic CombineFn[V,A,O], generalized
// from a handful of fixed pooling strategies into reusable accumulators.
package combiners

// Number is the set of element types the arithmetic combiners (Sum,
// AverageF64) accept.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}
