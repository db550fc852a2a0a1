package domain

// CombineFn is an associative, commutative fold over a per-key value stream,
// described by the four-operation protocol used by both CombineValues and
// CombineGlobally:
//
//   - Create returns the identity accumulator.
//   - AddInput folds one value into an accumulator, returning the updated
//     accumulator. Implementations must be commutative in effect with
//     eventual merges: the engine never guarantees per-partition input
//     order.
//   - Merge combines two accumulators into one.
//   - Finish projects a final accumulator to the output type. The engine
//     guarantees Finish is called at most once per key.
//
// V is the input value type, A is the accumulator type, O is the output
// type. Combiners that violate associativity/commutativity over their value
// stream produce results that depend on partitioning, which is a contract
// violation, not an engine bug.
type CombineFn[V, A, O any] interface {
	Create() A
	AddInput(acc A, v V) A
	Merge(acc A, other A) A
	Finish(acc A) O
}

// LiftableCombiner is an optional capability a CombineFn may additionally
// implement: a direct slice->accumulator path that lets the planner fuse a
// GroupByKey immediately followed by a CombineValues using this combiner
// into a single physical barrier, skipping the group-by-key materialization
// entirely. BuildFromGroup(values) must produce an accumulator equal (per
// Finish) to folding Create() through AddInput for every value in values.
type LiftableCombiner[V, A, O any] interface {
	CombineFn[V, A, O]
	BuildFromGroup(values []V) A
}
