package sources

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/flowbatch/flowbatch/internal/domain"
)

// JSONLShards describes a JSONL file pre-split into line ranges, one shard
// per partition -- streaming sources report one partition per pre-built
// shard, with the requested partition count purely advisory.
type JSONLShards struct {
	Path       string
	TotalLines int
	Ranges     [][2]int // [start, end) line indices, 0-based
}

// BuildJSONLShards scans path once to count lines, then partitions them
// into shards of at most linesPerShard lines each.
func BuildJSONLShards(path string, linesPerShard int) (JSONLShards, error) {
	if linesPerShard < 1 {
		linesPerShard = 1
	}
	f, err := os.Open(path)
	if err != nil {
		return JSONLShards{}, fmt.Errorf("jsonl shards: open %s: %w", path, err)
	}
	defer f.Close()

	total := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		total++
	}
	if err := scanner.Err(); err != nil {
		return JSONLShards{}, fmt.Errorf("jsonl shards: scan %s: %w", path, err)
	}

	var ranges [][2]int
	for start := 0; start < total; start += linesPerShard {
		end := start + linesPerShard
		if end > total {
			end = total
		}
		ranges = append(ranges, [2]int{start, end})
	}
	if len(ranges) == 0 {
		ranges = [][2]int{{0, 0}}
	}
	return JSONLShards{Path: path, TotalLines: total, Ranges: ranges}, nil
}

func readJSONLRange[T any](path string, start, end int) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jsonl range: open %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		if line >= end {
			break
		}
		if line >= start {
			var v T
			if err := json.Unmarshal(scanner.Bytes(), &v); err != nil {
				return nil, fmt.Errorf("jsonl range: line %d: %w", line, err)
			}
			out = append(out, v)
		}
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl range: scan: %w", err)
	}
	return out, nil
}

// JSONLVecOps is the VecOps vtable for a JSONLShards payload, typed over T
// via encoding/json.
type JSONLVecOps[T any] struct{}

// NewJSONLVecOps builds a JSONLVecOps for T.
func NewJSONLVecOps[T any]() JSONLVecOps[T] { return JSONLVecOps[T]{} }

func (JSONLVecOps[T]) Length(payload any) (int, bool) {
	s, ok := payload.(JSONLShards)
	if !ok {
		return 0, false
	}
	return s.TotalLines, true
}

// Split ignores n: JSONL shards are pre-built, one partition per shard.
func (JSONLVecOps[T]) Split(payload any, _ int) ([]domain.Partition, bool) {
	s, ok := payload.(JSONLShards)
	if !ok {
		return nil, false
	}
	parts := make([]domain.Partition, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		v, err := readJSONLRange[T](s.Path, r[0], r[1])
		if err != nil {
			return nil, false
		}
		parts = append(parts, domain.Partition(v))
	}
	return parts, true
}

func (JSONLVecOps[T]) Materialize(payload any) (domain.Partition, bool) {
	s, ok := payload.(JSONLShards)
	if !ok {
		return nil, false
	}
	v, err := readJSONLRange[T](s.Path, 0, s.TotalLines)
	if err != nil {
		return nil, false
	}
	return domain.Partition(v), true
}
