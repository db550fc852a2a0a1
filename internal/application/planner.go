package application

import (
	"github.com/flowbatch/flowbatch/internal/domain"
)

// PlanStep is one physical stage of a Plan, in execution order.
type PlanStep struct {
	ID   domain.NodeID
	Node domain.Node
}

// Plan is the physical, post-rewrite pipeline for a single target node. The
// base language forbids fan-in, so the ancestor lineage of any one node is a
// simple chain (source or materialized root first, target last); Plan is
// that chain after the rewrite rules below have been applied to a fixed
// point.
type Plan struct {
	Steps []PlanStep
}

// BuildPlan walks target's producer chain back to its root, then applies the
// rewrite rules (stateless fusion, mid-chain materialization elision, lift
// detection) until none of them changes the chain, so the result is
// idempotent: planning an already-planned chain is a no-op. Fanout
// resolution for NodeCombineGlobal steps is clamped separately, against the
// partition count, which is only known once an Options value is chosen.
//
// This generalizes "sort a DAG of named units into layers" down to
// "linearize one node's ancestor chain and rewrite it," since the base
// language's no-fan-in rule makes that chain a list rather than a general
// graph.
func BuildPlan(p *Pipeline, target domain.NodeID) (*Plan, error) {
	nodes, edges, _ := p.snapshot()

	if _, ok := nodes[target]; !ok {
		return nil, &domain.ConstructionError{Op: "plan", NodeID: target, Reason: "target node does not exist"}
	}

	producerOf := make(map[domain.NodeID]domain.NodeID, len(edges))
	consumersOf := make(map[domain.NodeID][]domain.NodeID, len(edges))
	for _, e := range edges {
		producerOf[e.To] = e.From
		consumersOf[e.From] = append(consumersOf[e.From], e.To)
	}

	chain, err := ancestorChain(nodes, producerOf, target)
	if err != nil {
		return nil, err
	}

	steps := make([]PlanStep, len(chain))
	for i, id := range chain {
		steps[i] = PlanStep{ID: id, Node: nodes[id]}
	}

	for {
		var changed bool
		steps, changed = fuseStateless(steps)
		var changedElide bool
		steps, changedElide = elideCheckpoints(steps, consumersOf)
		var changedLift bool
		steps, changedLift = detectLift(steps)
		if !changed && !changedElide && !changedLift {
			break
		}
	}

	return &Plan{Steps: steps}, nil
}

// ancestorChain walks backward from target via producerOf, guarding against
// cycles (which Pipeline.Connect's invariants should make unreachable; a
// cycle found here is an engine bug, not a caller error).
func ancestorChain(nodes map[domain.NodeID]domain.Node, producerOf map[domain.NodeID]domain.NodeID, target domain.NodeID) ([]domain.NodeID, error) {
	seen := make(map[domain.NodeID]bool)
	var reversed []domain.NodeID
	cur := target
	for {
		if seen[cur] {
			domain.PanicEngineBug("cycle detected in ancestor chain at node %d", cur)
		}
		seen[cur] = true
		reversed = append(reversed, cur)

		prod, ok := producerOf[cur]
		if !ok {
			break
		}
		if _, exists := nodes[prod]; !exists {
			return nil, &domain.ConstructionError{Op: "plan", NodeID: cur, Reason: "producer edge points at a node that no longer exists"}
		}
		cur = prod
	}

	chain := make([]domain.NodeID, len(reversed))
	for i, id := range reversed {
		chain[len(reversed)-1-i] = id
	}
	return chain, nil
}

// fuseStateless merges every maximal run of consecutive NodeStateless steps
// into one, concatenating their Ops left to right and keeping the first
// step's InputTag and the last step's OutputTag and Label. A Checkpoint step
// is never fused with its neighbours, so elideCheckpoints still sees it and
// decides by its consumer count. A run of length one is left untouched
// (nothing to merge) so the pass is idempotent: re-running it on an
// already-fused chain reports no change.
func fuseStateless(steps []PlanStep) ([]PlanStep, bool) {
	if len(steps) < 2 {
		return steps, false
	}

	out := make([]PlanStep, 0, len(steps))
	changed := false
	i := 0
	for i < len(steps) {
		cur := steps[i]
		if cur.Node.Kind != domain.NodeStateless {
			out = append(out, cur)
			i++
			continue
		}

		j := i + 1
		fused := cur
		for j < len(steps) && steps[j].Node.Kind == domain.NodeStateless && !fused.Node.Checkpoint && !steps[j].Node.Checkpoint {
			ops := make([]domain.DynOp, 0, len(fused.Node.Ops)+len(steps[j].Node.Ops))
			ops = append(ops, fused.Node.Ops...)
			ops = append(ops, steps[j].Node.Ops...)
			fused.Node.Ops = ops
			fused.Node.OutputTag = steps[j].Node.OutputTag
			fused.Node.Checkpoint = steps[j].Node.Checkpoint
			fused.Node.Label = steps[j].Node.Label
			fused.ID = steps[j].ID
			j++
			changed = true
		}
		out = append(out, fused)
		i = j
	}
	return out, changed
}

// elideCheckpoints removes a Checkpoint-marked step when this target is its
// only consumer in the whole pipeline. A checkpoint with more than one
// consumer is retained so other plans sharing the same node still see a
// realized boundary to cache against.
func elideCheckpoints(steps []PlanStep, consumersOf map[domain.NodeID][]domain.NodeID) ([]PlanStep, bool) {
	changed := false
	out := make([]PlanStep, 0, len(steps))
	for _, s := range steps {
		if s.Node.Kind == domain.NodeStateless && s.Node.Checkpoint && len(consumersOf[s.ID]) <= 1 {
			changed = true
			continue
		}
		out = append(out, s)
	}
	return out, changed
}

// detectLift finds a NodeGroupByKey step immediately followed by a
// NodeCombineValues step whose LiftedLocal is set, and fuses them into one
// physical CombineValues step that runs LiftedLocal directly over the
// GroupByKey step's original input, skipping the group materialization
// entirely. Idempotent: once fused, there is no GroupByKey step left to
// match on a second pass.
func detectLift(steps []PlanStep) ([]PlanStep, bool) {
	for i := 0; i+1 < len(steps); i++ {
		gbk := steps[i]
		cv := steps[i+1]
		if gbk.Node.Kind != domain.NodeGroupByKey || cv.Node.Kind != domain.NodeCombineValues {
			continue
		}
		if cv.Node.LiftedLocal == nil {
			continue
		}

		out := make([]PlanStep, 0, len(steps)-1)
		out = append(out, steps[:i]...)
		fused := cv
		fused.Node.Local = cv.Node.LiftedLocal
		fused.Node.Liftable = true
		fused.Node.InputTag = gbk.Node.InputTag
		out = append(out, fused)
		out = append(out, steps[i+2:]...)
		return out, true
	}
	return steps, false
}

// ResolveFanout clamps a barrier's advisory Fanout (the number of partials
// each group of the parallel executor's tree merge folds) against the number
// of partials this run produced: zero (unspecified) becomes
// ceil(sqrt(partitions)), and any larger value is clamped down to
// partitions, since a group cannot hold more partials than there are.
func ResolveFanout(fanout, partitions int) int {
	if partitions < 1 {
		partitions = 1
	}
	if fanout <= 0 {
		fanout = ceilSqrt(partitions)
	}
	if fanout > partitions {
		fanout = partitions
	}
	if fanout < 1 {
		fanout = 1
	}
	return fanout
}

func ceilSqrt(n int) int {
	if n <= 1 {
		return 1
	}
	r := 1
	for r*r < n {
		r++
	}
	return r
}
