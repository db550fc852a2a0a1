package application

import (
	"context"
	"time"

	"github.com/flowbatch/flowbatch/internal/domain"
	"github.com/flowbatch/flowbatch/internal/ports"
)

// RunSequential walks plan in order on the calling goroutine, keeping at most
// one partition alive at a time. Every barrier's local phase runs once (on
// that single partition) and merge runs on a singleton list, which keeps the
// barrier protocol identical to the parallel executor's: a barrier is always
// "local then merge then finalize," never a direct fold.
//
// Structurally this is a plain in-order loop over the sorted stages of one
// evaluation, generalized from "invoke named units" to "apply type-erased
// DynOp/barrier closures to an opaque Partition."
func RunSequential(ctx context.Context, plan *Plan, opts ports.Options) (domain.Partition, error) {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = ports.NoopTracer{}
	}

	var cur domain.Partition
	for _, step := range plan.Steps {
		stage := stageLabel(step)
		_, end := tracer.StartSpan(ctx, stage, map[string]string{"kind": step.Node.Kind.String()})
		metrics.StageStarted(stage)
		start := time.Now()

		switch step.Node.Kind {
		case domain.NodeSource:
			part, ok := step.Node.VecOps.Materialize(step.Node.SourcePayload)
			if !ok {
				domain.PanicEngineBug("source node %d: VecOps.Materialize rejected its own payload", step.ID)
			}
			cur = part

		case domain.NodeMaterialized:
			cur = step.Node.MaterializedPayload

		case domain.NodeStateless:
			if err := applyStatelessRecovering(step.Node.Ops, &cur); err != nil {
				return nil, err
			}

		case domain.NodeGroupByKey, domain.NodeCombineValues, domain.NodeCombineGlobal:
			local := step.Node.Local(cur)
			merged := step.Node.Merge([]domain.Partition{local})
			cur = step.Node.Finalize(merged)

		default:
			domain.PanicEngineBug("unhandled node kind %s at node %d", step.Node.Kind, step.ID)
		}

		metrics.StageCompleted(stage, time.Since(start).Seconds())
		end()
	}
	return cur, nil
}

// applyStatelessRecovering runs ops over *cur in place, recovering a
// *domain.ExecutionError panic (the contract-violation channel a DynOp has
// no error return to use directly, e.g. BatchMap's length check) into a
// returned error instead of letting it abort the process.
func applyStatelessRecovering(ops []domain.DynOp, cur *domain.Partition) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.RecoverStageExecutionPanic(r)
		}
	}()
	for _, op := range ops {
		*cur = op.Apply(*cur)
	}
	return nil
}

func stageLabel(step PlanStep) string {
	if step.Node.Label != "" {
		return step.Node.Label
	}
	return step.Node.Kind.String()
}
