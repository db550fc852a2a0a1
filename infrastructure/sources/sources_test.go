package sources

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/time/rate"
)

func TestSliceVecOpsLengthSplitMaterialize(t *testing.T) {
	ops := NewSliceVecOps[int]()
	data := []int{1, 2, 3, 4, 5, 6, 7}

	n, ok := ops.Length(data)
	require.True(t, ok)
	assert.Equal(t, 7, n)

	parts, ok := ops.Split(data, 3)
	require.True(t, ok)
	total := 0
	for _, p := range parts {
		total += len(p.([]int))
	}
	assert.Equal(t, 7, total)

	whole, ok := ops.Materialize(data)
	require.True(t, ok)
	assert.Equal(t, data, whole)
}

func TestSliceVecOpsSplitSingleElementNeverFragments(t *testing.T) {
	ops := NewSliceVecOps[int]()
	parts, ok := ops.Split([]int{42}, 8)
	require.True(t, ok)
	assert.Len(t, parts, 1)
}

func TestSliceVecOpsRejectsWrongPayloadType(t *testing.T) {
	ops := NewSliceVecOps[int]()
	_, ok := ops.Length("not an []int")
	assert.False(t, ok)
}

func TestSliceVecOpsSplitClonesUnderlyingData(t *testing.T) {
	ops := NewSliceVecOps[int]()
	data := []int{1, 2, 3}
	parts, ok := ops.Split(data, 1)
	require.True(t, ok)
	clone := parts[0].([]int)
	clone[0] = 999
	assert.Equal(t, 1, data[0], "Split must not let a caller mutation leak back into the source payload")
}

func TestJSONLShardsWordCountScenario(t *testing.T) {
	// Three lines, one per shard.
	dir := t.TempDir()
	path := filepath.Join(dir, "lines.jsonl")
	lines := []string{`{"text":"a a b"}`, `{"text":"c b a"}`, `{"text":"c c a"}`}
	writeLines(t, path, lines)

	shards, err := BuildJSONLShards(path, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, shards.TotalLines)
	assert.Len(t, shards.Ranges, 3)

	type line struct {
		Text string `json:"text"`
	}
	ops := NewJSONLVecOps[line]()

	parts, ok := ops.Split(shards, 0)
	require.True(t, ok)
	require.Len(t, parts, 3)

	counts := map[string]int{}
	for _, p := range parts {
		for _, l := range p.([]line) {
			for _, w := range splitWords(l.Text) {
				counts[w]++
			}
		}
	}
	assert.Equal(t, map[string]int{"a": 4, "b": 2, "c": 3}, counts)
}

func TestJSONLVecOpsMaterializeReadsWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lines.jsonl")
	writeLines(t, path, []string{`{"text":"x"}`, `{"text":"y"}`})

	shards, err := BuildJSONLShards(path, 10)
	require.NoError(t, err)

	type line struct {
		Text string `json:"text"`
	}
	ops := NewJSONLVecOps[line]()
	whole, ok := ops.Materialize(shards)
	require.True(t, ok)
	assert.Len(t, whole.([]line), 2)
}

func TestCSVShardsWithHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")
	content := "name,age\nalice,30\nbob,25\ncarol,40\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	shards, err := BuildCSVShards(path, true, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, shards.TotalRows)

	type person struct {
		Name string
		Age  int
	}
	ops := NewCSVVecOps(func(rec []string) (person, error) {
		age, err := strconv.Atoi(rec[1])
		if err != nil {
			return person{}, err
		}
		return person{Name: rec[0], Age: age}, nil
	})

	whole, ok := ops.Materialize(shards)
	require.True(t, ok)
	people := whole.([]person)
	require.Len(t, people, 3)
	assert.Equal(t, "alice", people[0].Name)
	assert.Equal(t, 40, people[2].Age)
}

func TestRateLimitedDelegatesToNext(t *testing.T) {
	inner := NewSliceVecOps[int]()
	limited := NewRateLimited(inner, rate.Inf, 1)

	n, ok := limited.Length([]int{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, 3, n)

	parts, ok := limited.Split([]int{1, 2, 3, 4}, 2)
	require.True(t, ok)
	assert.Len(t, parts, 2)

	whole, ok := limited.Materialize([]int{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, whole)
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, l := range lines {
		_, err := f.WriteString(l + "\n")
		require.NoError(t, err)
	}
}

func splitWords(s string) []string {
	var out []string
	var cur []byte
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = nil
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			flush()
			continue
		}
		cur = append(cur, s[i])
	}
	flush()
	return out
}
