package flowbatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastMapWithSide(t *testing.T) {
	sideP := NewPipeline()
	blocklist, err := NewBroadcast(FromSlice(sideP, []string{"b", "d"}))
	require.NoError(t, err)

	p := NewPipeline()
	letters := FromSlice(p, []string{"a", "b", "c", "d", "e"})
	tagged := MapWithSide(letters, blocklist, func(letter string, blocked []string) string {
		for _, b := range blocked {
			if b == letter {
				return letter + ":blocked"
			}
		}
		return letter + ":ok"
	})

	out, err := CollectSorted(tagged)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:ok", "b:blocked", "c:ok", "d:blocked", "e:ok"}, out)
}

func TestBroadcastFilterWithSide(t *testing.T) {
	sideP := NewPipeline()
	allow, err := NewBroadcast(FromSlice(sideP, []int{2, 4}))
	require.NoError(t, err)

	p := NewPipeline()
	nums := FromSlice(p, []int{1, 2, 3, 4, 5})
	filtered := FilterWithSide(nums, allow, func(n int, allowed []int) bool {
		for _, a := range allowed {
			if a == n {
				return true
			}
		}
		return false
	})

	out, err := CollectSorted(filtered)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, out)
}
