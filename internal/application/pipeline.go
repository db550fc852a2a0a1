// Package application contains the orchestration layer of the dataflow
// engine: the Pipeline graph builder, the Planner rewrite pass, the
// sequential and parallel executors, and the terminal collect operations.
// The graph builder generalizes "run named Executables over an evaluation
// State" to "run type-erased Partitions over a DAG of operators and
// barriers."
package application

import (
	"fmt"
	"sync"

	"github.com/flowbatch/flowbatch/internal/domain"
)

// Pipeline owns the node map, the edge list, and the id counter for one
// dataflow graph. It is a clonable handle: copying a Pipeline value shares
// the same underlying graph, reference-counted like an Arc<Mutex<...>>.
// Construction is thread-safe under a single mutex; execution
// (Planner/Executor) only reads a snapshot and takes no lock of its own.
type Pipeline struct {
	inner *pipelineInner
}

type pipelineInner struct {
	mu     sync.Mutex
	nextID domain.NodeID
	nodes  map[domain.NodeID]domain.Node
	edges  []domain.Edge
	// producerOf maps a node to the single producer edge feeding it, if
	// any. The base language permits at most one incoming logical edge per
	// node (fan-in is reserved for future join operators).
	producerOf map[domain.NodeID]domain.NodeID
}

// NewPipeline creates an empty pipeline ready to accept source and operator
// nodes.
func NewPipeline() *Pipeline {
	return &Pipeline{inner: &pipelineInner{
		nodes:      make(map[domain.NodeID]domain.Node),
		producerOf: make(map[domain.NodeID]domain.NodeID),
	}}
}

// insertNode allocates a fresh NodeID and stores node under it.
func (p *Pipeline) insertNode(node domain.Node) domain.NodeID {
	in := p.inner
	in.mu.Lock()
	defer in.mu.Unlock()

	in.nextID++
	id := in.nextID
	in.nodes[id] = node
	return id
}

// InsertSource registers a Source node wrapping payload, its VecOps vtable,
// and the TypeTag of the elements it produces. Sources have no incoming
// edges by construction (there is no Connect call that targets them).
func (p *Pipeline) InsertSource(payload any, vecOps domain.VecOps, elemTag domain.TypeTag, label string) domain.NodeID {
	return p.insertNode(domain.Node{
		Kind:          domain.NodeSource,
		SourcePayload: payload,
		VecOps:        vecOps,
		ElemTag:       elemTag,
		OutputTag:     elemTag,
		Label:         label,
	})
}

// InsertStateless registers a Stateless node with the given operator chain,
// declared input TypeTag, and declared output TypeTag.
func (p *Pipeline) InsertStateless(ops []domain.DynOp, inputTag, outputTag domain.TypeTag, label string) domain.NodeID {
	return p.insertNode(domain.Node{
		Kind:      domain.NodeStateless,
		Ops:       ops,
		InputTag:  inputTag,
		OutputTag: outputTag,
		Label:     label,
	})
}

// InsertBarrier registers a GroupByKey or CombineValues barrier node (select
// kind via isCombine) with the given local/merge/finalize functions, declared
// input TypeTag, and declared output TypeTag.
func (p *Pipeline) InsertBarrier(isCombine bool, local domain.BarrierFn, merge domain.MergeFn, finalize domain.BarrierFn, inputTag, outputTag domain.TypeTag, label string) domain.NodeID {
	kind := domain.NodeGroupByKey
	if isCombine {
		kind = domain.NodeCombineValues
	}
	return p.insertNode(domain.Node{
		Kind:      kind,
		Local:     local,
		Merge:     merge,
		Finalize:  finalize,
		InputTag:  inputTag,
		OutputTag: outputTag,
		Label:     label,
	})
}

// InsertLiftedCombine registers a pre-lifted CombineValues barrier: one
// whose Local already runs BuildFromGroup per key instead of create/add.
func (p *Pipeline) InsertLiftedCombine(local domain.BarrierFn, merge domain.MergeFn, finalize domain.BarrierFn, inputTag, outputTag domain.TypeTag, label string) domain.NodeID {
	return p.insertNode(domain.Node{
		Kind:      domain.NodeCombineValues,
		Local:     local,
		Merge:     merge,
		Finalize:  finalize,
		Liftable:  true,
		InputTag:  inputTag,
		OutputTag: outputTag,
		Label:     label,
	})
}

// InsertCombineValuesLiftable registers a CombineValues barrier that can run
// two different Local implementations depending on what feeds it: local
// assumes its input is already grouped (a []KV[K,[]V]-shaped partition, the
// natural output of a GroupByKey's Finalize or of any other source of
// grouped data); liftedLocal assumes its input is still the raw ungrouped
// partition a GroupByKey would have consumed, and is swapped in by the
// planner's lift-detection rule when this node is immediately preceded by a
// GroupByKey node, which then drops that GroupByKey node's own
// local/merge/finalize entirely.
func (p *Pipeline) InsertCombineValuesLiftable(local, liftedLocal domain.BarrierFn, merge domain.MergeFn, finalize domain.BarrierFn, inputTag, outputTag domain.TypeTag, label string) domain.NodeID {
	return p.insertNode(domain.Node{
		Kind:        domain.NodeCombineValues,
		Local:       local,
		Merge:       merge,
		Finalize:    finalize,
		LiftedLocal: liftedLocal,
		InputTag:    inputTag,
		OutputTag:   outputTag,
		Label:       label,
	})
}

// InsertCheckpoint registers a mid-chain realization point: a Stateless node
// whose sole Op is the identity function, marked Checkpoint so the planner's
// mid-chain materialization elision rule can remove it again when it turns
// out to have exactly one consumer after all.
func (p *Pipeline) InsertCheckpoint(tag domain.TypeTag, label string) domain.NodeID {
	identity := domain.DynOpFunc(func(part domain.Partition) domain.Partition { return part })
	return p.insertNode(domain.Node{
		Kind:       domain.NodeStateless,
		Ops:        []domain.DynOp{identity},
		Checkpoint: true,
		InputTag:   tag,
		OutputTag:  tag,
		Label:      label,
	})
}

// InsertCombineGlobal registers a CombineGlobally barrier: local folds every
// element of a partition into one accumulator, merge combines accumulators
// pairwise, finalize applies Finish once to the sole surviving accumulator.
func (p *Pipeline) InsertCombineGlobal(local domain.BarrierFn, merge domain.MergeFn, finalize domain.BarrierFn, fanout int, inputTag, outputTag domain.TypeTag, label string) domain.NodeID {
	return p.insertNode(domain.Node{
		Kind:      domain.NodeCombineGlobal,
		Local:     local,
		Merge:     merge,
		Finalize:  finalize,
		Fanout:    fanout,
		InputTag:  inputTag,
		OutputTag: outputTag,
		Label:     label,
	})
}

// InsertMaterialized registers an explicitly precomputed partition, used by
// tests/checkpointing and by side-input broadcasting.
func (p *Pipeline) InsertMaterialized(payload any, outputTag domain.TypeTag, label string) domain.NodeID {
	return p.insertNode(domain.Node{
		Kind:                domain.NodeMaterialized,
		MaterializedPayload: payload,
		OutputTag:           outputTag,
		Label:               label,
	})
}

// Connect creates a directed edge from producer to consumer, enforcing that
// both nodes must exist, the consumer must not already have an incoming
// edge (fan-in is not supported), the edge must not close a cycle, and the
// edge's endpoint types must match.
func (p *Pipeline) Connect(from, to domain.NodeID) error {
	in := p.inner
	in.mu.Lock()
	defer in.mu.Unlock()

	fromNode, ok := in.nodes[from]
	if !ok {
		return &domain.ConstructionError{Op: "connect", NodeID: from, Reason: "producer node does not exist"}
	}
	toNode, ok := in.nodes[to]
	if !ok {
		return &domain.ConstructionError{Op: "connect", NodeID: to, Reason: "consumer node does not exist"}
	}
	if toNode.Kind == domain.NodeSource || toNode.Kind == domain.NodeMaterialized {
		return &domain.ConstructionError{Op: "connect", NodeID: to, Reason: "source/materialized nodes may not have an incoming edge"}
	}
	if _, exists := in.producerOf[to]; exists {
		return &domain.ConstructionError{Op: "connect", NodeID: to, Reason: "consumer already has a producer (fan-in is not supported)"}
	}
	for cur, ok := from, true; ok; cur, ok = in.producerOf[cur] {
		if cur == to {
			return &domain.ConstructionError{Op: "connect", NodeID: to, Reason: "edge would introduce a cycle"}
		}
	}

	if toNode.InputTag.Type != nil && !fromNode.OutputTag.Equal(toNode.InputTag) {
		return &domain.ConstructionError{
			Op: "connect", NodeID: to,
			Reason: fmt.Sprintf("type mismatch: producer emits %s, consumer expects %s", fromNode.OutputTag.Name, toNode.InputTag.Name),
		}
	}

	in.edges = append(in.edges, domain.Edge{From: from, To: to})
	in.producerOf[to] = from
	return nil
}

// snapshot returns a read-only copy of the current node map and edge list,
// used by the Planner so that execution never contends with construction.
func (p *Pipeline) snapshot() (map[domain.NodeID]domain.Node, []domain.Edge, domain.NodeID) {
	in := p.inner
	in.mu.Lock()
	defer in.mu.Unlock()

	nodes := make(map[domain.NodeID]domain.Node, len(in.nodes))
	for k, v := range in.nodes {
		nodes[k] = v
	}
	edges := make([]domain.Edge, len(in.edges))
	copy(edges, in.edges)
	return nodes, edges, in.nextID
}
