package flowbatch

// End-to-end coverage not already exercised by keyed_test.go /
// pcollection_test.go: fanout-parallel Sum, AverageF64, fanout-parallel
// DistinctCount, and the large-scale CombineValues-vs-lifted equivalence.

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbatch/flowbatch/infrastructure/combiners"
)

func TestScenarioSumZeroToNinetyNine(t *testing.T) {
	p := NewPipeline()
	nums := FromSlice(p, makeRange(0, 100))
	total := CombineGlobally(nums, combiners.Sum[int]{}, 0)

	out, err := Collect(total)
	require.NoError(t, err)
	assert.Equal(t, []int{4950}, out)
}

func TestScenarioSumWithFanoutParallel(t *testing.T) {
	p := NewPipeline()
	nums := FromSlice(p, makeRange(0, 10000))
	total := CombineGlobally(nums, combiners.Sum[int]{}, 3)

	out, err := CollectParallel(total, 0, 32)
	require.NoError(t, err)
	assert.Equal(t, []int{49995000}, out)
}

func TestScenarioAverageF64(t *testing.T) {
	p := NewPipeline()
	nums := FromSlice(p, []int{1, 2, 3, 4})
	avg := CombineGlobally(nums, combiners.AverageF64[int]{}, 0)

	out, err := Collect(avg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 2.5, out[0], 1e-12)
}

func TestScenarioDistinctCountWithFanoutParallel(t *testing.T) {
	p := NewPipeline()
	data := make([]int, 100)
	for i := range data {
		data[i] = i % 7
	}
	nums := FromSlice(p, data)
	distinct := CombineGlobally(nums, combiners.DistinctCount[int]{}, 4)

	out, err := CollectParallel(distinct, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, out)
}

func TestScenarioCombineValuesEqualsLiftedAtScale(t *testing.T) {
	const n = 20000
	const keys = 137
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i%keys)
	}

	p1 := NewPipeline()
	direct := CombineValues(KeyBy(FromSlice(p1, words), func(w string) string { return w }), combiners.Count[string]{})
	directOut, err := CollectSortedByKey(direct)
	require.NoError(t, err)

	p2 := NewPipeline()
	grouped := GroupByKey(KeyBy(FromSlice(p2, words), func(w string) string { return w }))
	lifted := CombineValuesLifted(grouped, combiners.Count[string]{})
	liftedOut, err := CollectParallelSortedByKey(lifted, 4, 8)
	require.NoError(t, err)

	require.Len(t, directOut, keys)
	assert.Equal(t, directOut, liftedOut)
}
