package domain

// NodeID is a 64-bit monotonically increasing identifier, unique within a
// single Pipeline and never reused.
type NodeID uint64

// DynOp is a single type-erased stateless operator: a pure, order-preserving
// partition-to-partition function. Fused chains of DynOp are what the
// planner collapses into one Stateless node.
type DynOp interface {
	Apply(Partition) Partition
}

// DynOpFunc adapts a plain function to the DynOp interface.
type DynOpFunc func(Partition) Partition

// Apply implements DynOp.
func (f DynOpFunc) Apply(p Partition) Partition { return f(p) }

// NodeKind discriminates the shape of a Node.
type NodeKind int

const (
	// NodeSource wraps a payload plus the VecOps vtable that knows how to
	// measure/split/materialize it. Sources have no incoming edges.
	NodeSource NodeKind = iota
	// NodeStateless holds an ordered, fused list of DynOp.
	NodeStateless
	// NodeGroupByKey is a barrier producing one (K, []V) pair per distinct K.
	NodeGroupByKey
	// NodeCombineValues is a barrier producing one (K, O) pair per distinct
	// K by folding every V for K through a CombineFn.
	NodeCombineValues
	// NodeMaterialized is an explicitly precomputed result, used for
	// testing or checkpointing. Mid-chain elision does not produce it; that
	// rule removes Checkpoint-marked Stateless nodes instead.
	NodeMaterialized
	// NodeCombineGlobal is a barrier producing a single output element by
	// folding every element of every partition through a CombineFn, with no
	// key. It is the physical form of CombineGlobally; the planner leaves it
	// as is, and its Fanout parameter is resolved by the executor.
	NodeCombineGlobal
)

// String renders the NodeKind for diagnostics and test failure messages.
func (k NodeKind) String() string {
	switch k {
	case NodeSource:
		return "Source"
	case NodeStateless:
		return "Stateless"
	case NodeGroupByKey:
		return "GroupByKey"
	case NodeCombineValues:
		return "CombineValues"
	case NodeMaterialized:
		return "Materialized"
	case NodeCombineGlobal:
		return "CombineGlobal"
	default:
		return "Unknown"
	}
}

// BarrierFn is the per-partition local-aggregation half of a barrier: it
// runs on each input partition independently, producing a partial
// aggregation (e.g. a per-partition K -> []V map, or K -> accumulator map).
type BarrierFn func(Partition) Partition

// MergeFn is the merge half of a barrier: it combines partial aggregations
// from (a subset of) partitions into a single partition of the same shape
// class, or, in the final round, into the barrier's public output shape.
type MergeFn func([]Partition) Partition

// Node is a tagged variant representing one vertex of the logical DAG.
// Only the fields relevant to Kind are populated; the rest are zero values.
type Node struct {
	Kind NodeKind

	// Populated when Kind == NodeSource.
	SourcePayload any
	VecOps        VecOps
	ElemTag       TypeTag

	// Populated when Kind == NodeStateless.
	Ops []DynOp

	// Populated when Kind == NodeGroupByKey or NodeCombineValues. Local and
	// Merge both operate in accumulator space (K -> []V for GroupByKey, K ->
	// A for CombineValues) so that Merge can be applied repeatedly in an
	// associative-tree reduction; Finalize performs the one-time conversion
	// from the merged accumulator partition to the barrier's declared output
	// shape (K -> []V becomes []KV[K,[]V]; K -> A becomes []KV[K,O] via
	// Finish). The engine calls Finalize exactly once per barrier, on the
	// single partition remaining after every merge round completes.
	Local    BarrierFn
	Merge    MergeFn
	Finalize BarrierFn
	// Liftable marks a CombineValues node whose Local already incorporates
	// a direct slice->accumulator fast path (set by the planner's lift
	// rewrite, or directly by a caller building a pre-lifted barrier).
	Liftable bool
	// LiftedLocal, when non-nil on a CombineValues node, is an alternate
	// Local built generically at construction time (when the real V/A/O
	// types were still known) from the combiner's BuildFromGroup. The
	// planner's lift-detection rule swaps it in and drops the preceding
	// GroupByKey node when it finds GroupByKey feeding this node directly.
	LiftedLocal BarrierFn

	// Fanout is the advisory group size for a NodeCombineGlobal barrier's
	// merge in the parallel executor: each merge round folds groups of up to
	// Fanout partials, and rounds repeat until one partial remains. Zero
	// means "engine chooses"; the parallel executor resolves it with
	// ResolveFanout to a concrete value no greater than the partition count.
	// No synthetic keys are injected and the merge is not limited to two
	// rounds.
	Fanout int

	// Checkpoint marks a Stateless node (Ops is a single identity DynOp) as a
	// user-requested mid-chain realization point, inserted so a fan-out
	// point is computed once and reused by several downstream chains. Unlike
	// NodeMaterialized (which by invariant 4 never has a producer and exists
	// only for precomputed roots), a checkpoint node has a producer and is
	// the thing the planner's mid-chain materialization elision rule removes
	// when it turns out to have exactly one consumer after all.
	Checkpoint bool

	// Populated when Kind == NodeMaterialized.
	MaterializedPayload any

	// InputTag is the TypeTag this node expects on its single incoming
	// edge (zero value for Source/Materialized, which have none). Used for
	// the defensive edge-type check in Pipeline.Connect.
	InputTag TypeTag

	// OutputTag is the TypeTag of whatever this node emits on its outgoing
	// edges, used for the defensive downcast check at stage boundaries.
	OutputTag TypeTag

	// Label is a short human-readable name for diagnostics (stage names in
	// traces/metrics); it is not part of the engine's semantics.
	Label string
}

// Edge is a directed pair (producer, consumer). Every node in the base
// language has at most one incoming logical edge; multiple outgoing edges
// (fan-out) are allowed.
type Edge struct {
	From NodeID
	To   NodeID
}
