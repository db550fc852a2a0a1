package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbatch/flowbatch/internal/domain"
)

func noopBarrier() domain.BarrierFn {
	return func(p domain.Partition) domain.Partition { return p }
}

func noopMerge() domain.MergeFn {
	return func(parts []domain.Partition) domain.Partition {
		if len(parts) == 0 {
			return nil
		}
		return parts[0]
	}
}

func TestBuildPlanFusesConsecutiveStatelessSteps(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1, 2, 3}, nil, intTag(), "Source")
	a := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "A")
	b := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "B")
	c := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "C")

	require.NoError(t, p.Connect(src, a))
	require.NoError(t, p.Connect(a, b))
	require.NoError(t, p.Connect(b, c))

	plan, err := BuildPlan(p, c)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, src, plan.Steps[0].ID)
	assert.Equal(t, domain.NodeStateless, plan.Steps[1].Node.Kind)
	assert.Len(t, plan.Steps[1].Node.Ops, 3)
	assert.Equal(t, "C", plan.Steps[1].Node.Label)
}

func TestBuildPlanIsIdempotent(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1, 2, 3}, nil, intTag(), "Source")
	a := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "A")
	b := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "B")

	require.NoError(t, p.Connect(src, a))
	require.NoError(t, p.Connect(a, b))

	first, err := BuildPlan(p, b)
	require.NoError(t, err)

	steps, changed := fuseStateless(first.Steps)
	assert.False(t, changed)
	assert.Equal(t, first.Steps, steps)
}

func TestElideCheckpointsRemovesSingleConsumerCheckpoint(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1, 2, 3}, nil, intTag(), "Source")
	cp := p.InsertCheckpoint(intTag(), "Checkpoint")
	consumer := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "Consumer")

	require.NoError(t, p.Connect(src, cp))
	require.NoError(t, p.Connect(cp, consumer))

	plan, err := BuildPlan(p, consumer)
	require.NoError(t, err)

	for _, s := range plan.Steps {
		assert.False(t, s.Node.Checkpoint, "checkpoint with a single consumer should be elided")
	}
}

func TestElideCheckpointsKeepsMultiConsumerCheckpoint(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1, 2, 3}, nil, intTag(), "Source")
	cp := p.InsertCheckpoint(intTag(), "Checkpoint")
	consumerA := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "A")
	consumerB := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "B")

	require.NoError(t, p.Connect(src, cp))
	require.NoError(t, p.Connect(cp, consumerA))
	require.NoError(t, p.Connect(cp, consumerB))

	planA, err := BuildPlan(p, consumerA)
	require.NoError(t, err)

	found := false
	for _, s := range planA.Steps {
		if s.Node.Checkpoint {
			found = true
		}
	}
	assert.True(t, found, "checkpoint with two consumers must survive on either branch's plan")
}

func TestDetectLiftFusesGroupByKeyAndCombineValues(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1, 2, 3}, nil, intTag(), "Source")
	gbk := p.InsertBarrier(false, noopBarrier(), noopMerge(), noopBarrier(), intTag(), intTag(), "GroupByKey")
	lifted := noopBarrier()
	cv := p.InsertCombineValuesLiftable(noopBarrier(), lifted, noopMerge(), noopBarrier(), intTag(), intTag(), "CombineValuesLifted")

	require.NoError(t, p.Connect(src, gbk))
	require.NoError(t, p.Connect(gbk, cv))

	plan, err := BuildPlan(p, cv)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2, "GroupByKey and CombineValues should fuse into one physical step")
	fused := plan.Steps[1]
	assert.Equal(t, domain.NodeCombineValues, fused.Node.Kind)
	assert.True(t, fused.Node.Liftable)
	assert.Equal(t, intTag(), fused.Node.InputTag)
}

func TestDetectLiftDoesNothingWithoutLiftedLocal(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1, 2, 3}, nil, intTag(), "Source")
	gbk := p.InsertBarrier(false, noopBarrier(), noopMerge(), noopBarrier(), intTag(), intTag(), "GroupByKey")
	cv := p.InsertBarrier(true, noopBarrier(), noopMerge(), noopBarrier(), intTag(), intTag(), "CombineValues")

	require.NoError(t, p.Connect(src, gbk))
	require.NoError(t, p.Connect(gbk, cv))

	plan, err := BuildPlan(p, cv)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 3, "without LiftedLocal the GroupByKey and CombineValues stay distinct steps")
}

func TestResolveFanoutDefaultsToCeilSqrt(t *testing.T) {
	tests := []struct {
		fanout, partitions, want int
	}{
		{fanout: 0, partitions: 1, want: 1},
		{fanout: 0, partitions: 4, want: 2},
		{fanout: 0, partitions: 10, want: 4},
		{fanout: 100, partitions: 10, want: 10},
		{fanout: 2, partitions: 10, want: 2},
		{fanout: 0, partitions: 0, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveFanout(tt.fanout, tt.partitions))
	}
}

func TestBuildPlanRejectsUnknownTarget(t *testing.T) {
	p := NewPipeline()
	_, err := BuildPlan(p, 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target node does not exist")
}
