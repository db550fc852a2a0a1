package application

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowbatch/flowbatch/internal/domain"
	"github.com/flowbatch/flowbatch/internal/ports"
)

// RunParallel splits the source into Options.Partitions shards, runs each
// stateless stage over every shard concurrently on a bounded worker pool,
// and reduces each barrier's per-shard partials with an associative tree
// merge batched by the barrier's resolved fanout (ceil(sqrt(partitions)) by
// default), giving an O(log partitions) critical path instead of funneling
// every partial onto one goroutine.
//
// Structurally this is worker-pool fan-out/fan-in over one topological
// layer, built on golang.org/x/sync/errgroup rather than a raw
// channel+semaphore pool.
func RunParallel(ctx context.Context, plan *Plan, opts ports.Options) (domain.Partition, error) {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = ports.NoopTracer{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	partitions := opts.Partitions
	if partitions <= 0 {
		partitions = 2 * workers
	}
	if partitions < 1 {
		partitions = 1
	}

	var parts []domain.Partition
	for i, step := range plan.Steps {
		stage := stageLabel(step)
		_, end := tracer.StartSpan(ctx, stage, map[string]string{"kind": step.Node.Kind.String()})
		start := time.Now()
		metrics.StageStarted(stage)

		switch step.Node.Kind {
		case domain.NodeSource:
			split, ok := step.Node.VecOps.Split(step.Node.SourcePayload, partitions)
			if !ok {
				domain.PanicEngineBug("source node %d: VecOps.Split rejected its own payload", step.ID)
			}
			if len(split) == 0 {
				single, ok := step.Node.VecOps.Materialize(step.Node.SourcePayload)
				if !ok {
					domain.PanicEngineBug("source node %d: VecOps.Materialize rejected its own payload", step.ID)
				}
				split = []domain.Partition{single}
			}
			parts = split

		case domain.NodeMaterialized:
			parts = []domain.Partition{step.Node.MaterializedPayload}

		case domain.NodeStateless:
			if err := mapConcurrentRecovering(ctx, workers, parts, step.Node.Ops); err != nil {
				return nil, err
			}

		case domain.NodeGroupByKey, domain.NodeCombineValues, domain.NodeCombineGlobal:
			locals := make([]domain.Partition, len(parts))
			src := parts
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(workers)
			for idx, p := range src {
				idx, p := idx, p
				g.Go(func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					locals[idx] = step.Node.Local(p)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, &domain.ExecutionError{Stage: stage, Reason: "local phase failed", Cause: err}
			}

			fanout := step.Node.Fanout
			if fanout <= 0 {
				fanout = opts.Fanout
			}
			batch := ResolveFanout(fanout, len(locals))
			merged := treeMergeBatched(ctx, step.Node.Merge, locals, batch, workers, metrics, stage)
			parts = []domain.Partition{step.Node.Finalize(merged)}

		default:
			domain.PanicEngineBug("unhandled node kind %s at node %d", step.Node.Kind, step.ID)
		}

		metrics.StageCompleted(stage, time.Since(start).Seconds())
		end()
		_ = i
	}

	if len(parts) == 0 {
		return nil, nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	// No stage follows the last one to concatenate stray multi-partition
	// output; the caller's terminal Collect* is responsible for
	// concatenating the final partitions into a result.
	return concatUnknownPartitions(parts), nil
}

// mapConcurrentRecovering applies ops to every element of parts in place,
// bounded to workers concurrent goroutines, recovering a per-partition
// *domain.ExecutionError panic into the errgroup's returned error instead of
// letting a contract violation (e.g. BatchMap's length check) crash a
// goroutine the group can't otherwise observe.
func mapConcurrentRecovering(ctx context.Context, workers int, parts []domain.Partition, ops []domain.DynOp) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range parts {
		i := i
		g.Go(func() (err error) {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			defer func() {
				if r := recover(); r != nil {
					err = domain.RecoverStageExecutionPanic(r)
				}
			}()
			p := parts[i]
			for _, op := range ops {
				p = op.Apply(p)
			}
			parts[i] = p
			return nil
		})
	}
	return g.Wait()
}

// treeMergeBatched reduces partials to one Partition by repeatedly merging
// groups of up to batch partials concurrently, until a single partial
// remains. Each round's groups are merged independently, giving an
// O(log_batch(len(partials))) critical path.
func treeMergeBatched(ctx context.Context, merge domain.MergeFn, partials []domain.Partition, batch, workers int, metrics ports.MetricsCollector, stage string) domain.Partition {
	if batch < 2 {
		batch = len(partials)
		if batch < 2 {
			batch = 2
		}
	}
	for len(partials) > 1 {
		groups := chunk(partials, batch)
		next := make([]domain.Partition, len(groups))
		var mu sync.Mutex
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for gi, group := range groups {
			gi, group := gi, group
			g.Go(func() error {
				start := time.Now()
				next[gi] = merge(group)
				mu.Lock()
				metrics.MergeRound(stage, len(group), time.Since(start).Seconds())
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		partials = next
	}
	return partials[0]
}

func chunk(parts []domain.Partition, size int) [][]domain.Partition {
	var out [][]domain.Partition
	for i := 0; i < len(parts); i += size {
		end := i + size
		if end > len(parts) {
			end = len(parts)
		}
		out = append(out, parts[i:end])
	}
	return out
}

// concatUnknownPartitions hands back the per-partition outputs unchanged, as
// a []domain.Partition, when the last stage is not a barrier and so leaves
// more than one partition. It does not concatenate them itself: the element
// type is unknown here, and terminal.go's normalizePartition does the typed
// concatenation.
func concatUnknownPartitions(parts []domain.Partition) domain.Partition {
	return parts
}
