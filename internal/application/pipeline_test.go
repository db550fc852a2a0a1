package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbatch/flowbatch/internal/domain"
)

func intTag() domain.TypeTag    { return domain.TypeTagOf[int]() }
func stringTag() domain.TypeTag { return domain.TypeTagOf[string]() }

func identityOp() domain.DynOp {
	return domain.DynOpFunc(func(p domain.Partition) domain.Partition { return p })
}

func TestConnectRejectsUnknownNodes(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1}, nil, intTag(), "Source")

	err := p.Connect(src, 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consumer node does not exist")

	err = p.Connect(999, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "producer node does not exist")
}

func TestConnectRejectsIncomingEdgeToSourceOrMaterialized(t *testing.T) {
	p := NewPipeline()
	a := p.InsertSource([]int{1}, nil, intTag(), "A")
	b := p.InsertSource([]int{2}, nil, intTag(), "B")
	mat := p.InsertMaterialized([]int{3}, intTag(), "Mat")

	require.Error(t, p.Connect(a, b))
	require.Error(t, p.Connect(a, mat))
}

func TestConnectRejectsFanIn(t *testing.T) {
	p := NewPipeline()
	a := p.InsertSource([]int{1}, nil, intTag(), "A")
	b := p.InsertSource([]int{2}, nil, intTag(), "B")
	consumer := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "Consumer")

	require.NoError(t, p.Connect(a, consumer))
	err := p.Connect(b, consumer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fan-in is not supported")
}

func TestConnectRejectsTypeMismatch(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1}, nil, intTag(), "Source")
	consumer := p.InsertStateless([]domain.DynOp{identityOp()}, stringTag(), stringTag(), "Consumer")

	err := p.Connect(src, consumer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
}

func TestConnectSucceedsOnMatchingTypes(t *testing.T) {
	p := NewPipeline()
	src := p.InsertSource([]int{1}, nil, intTag(), "Source")
	consumer := p.InsertStateless([]domain.DynOp{identityOp()}, intTag(), intTag(), "Consumer")

	require.NoError(t, p.Connect(src, consumer))

	_, edges, _ := p.snapshot()
	require.Len(t, edges, 1)
	assert.Equal(t, src, edges[0].From)
	assert.Equal(t, consumer, edges[0].To)
}
