package sources

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/flowbatch/flowbatch/internal/domain"
)

// CSVShards describes a CSV file pre-split into row ranges, mirroring
// JSONLShards. HasHeader, when true, means row 0 of the file is a header
// and is excluded from TotalRows/Ranges.
type CSVShards struct {
	Path      string
	HasHeader bool
	TotalRows int
	Ranges    [][2]int // [start, end) row indices, 0-based, header excluded
}

// BuildCSVShards scans path once to count data rows, then partitions them
// into shards of at most rowsPerShard rows each.
func BuildCSVShards(path string, hasHeader bool, rowsPerShard int) (CSVShards, error) {
	if rowsPerShard < 1 {
		rowsPerShard = 1
	}
	f, err := os.Open(path)
	if err != nil {
		return CSVShards{}, fmt.Errorf("csv shards: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	total := 0
	first := true
	for {
		_, err := r.Read()
		if err != nil {
			break
		}
		if first && hasHeader {
			first = false
			continue
		}
		first = false
		total++
	}

	var ranges [][2]int
	for start := 0; start < total; start += rowsPerShard {
		end := start + rowsPerShard
		if end > total {
			end = total
		}
		ranges = append(ranges, [2]int{start, end})
	}
	if len(ranges) == 0 {
		ranges = [][2]int{{0, 0}}
	}
	return CSVShards{Path: path, HasHeader: hasHeader, TotalRows: total, Ranges: ranges}, nil
}

func readCSVRange[T any](s CSVShards, start, end int, parse func([]string) (T, error)) ([]T, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("csv range: open %s: %w", s.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []T
	row := 0
	first := true
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		if first && s.HasHeader {
			first = false
			continue
		}
		first = false
		if row >= end {
			break
		}
		if row >= start {
			v, err := parse(rec)
			if err != nil {
				return nil, fmt.Errorf("csv range: row %d: %w", row, err)
			}
			out = append(out, v)
		}
		row++
	}
	return out, nil
}

// CSVVecOps is the VecOps vtable for a CSVShards payload. Parse converts a
// raw CSV record into T; it is supplied by the caller since there is no
// generic record->T mapping.
type CSVVecOps[T any] struct {
	Parse func([]string) (T, error)
}

// NewCSVVecOps builds a CSVVecOps using parse to decode each row.
func NewCSVVecOps[T any](parse func([]string) (T, error)) CSVVecOps[T] {
	return CSVVecOps[T]{Parse: parse}
}

func (c CSVVecOps[T]) Length(payload any) (int, bool) {
	s, ok := payload.(CSVShards)
	if !ok {
		return 0, false
	}
	return s.TotalRows, true
}

// Split ignores n: CSV shards are pre-built, one partition per shard.
func (c CSVVecOps[T]) Split(payload any, _ int) ([]domain.Partition, bool) {
	s, ok := payload.(CSVShards)
	if !ok {
		return nil, false
	}
	parts := make([]domain.Partition, 0, len(s.Ranges))
	for _, rg := range s.Ranges {
		v, err := readCSVRange[T](s, rg[0], rg[1], c.Parse)
		if err != nil {
			return nil, false
		}
		parts = append(parts, domain.Partition(v))
	}
	return parts, true
}

func (c CSVVecOps[T]) Materialize(payload any) (domain.Partition, bool) {
	s, ok := payload.(CSVShards)
	if !ok {
		return nil, false
	}
	v, err := readCSVRange[T](s, 0, s.TotalRows, c.Parse)
	if err != nil {
		return nil, false
	}
	return domain.Partition(v), true
}
