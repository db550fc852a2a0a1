// Package domain contains the pure, dependency-free types that define the
// dataflow engine's data model: type tokens, the erased partition substrate,
// the node/edge graph shape, and the combine protocol. Nothing in this
// package imports application or infrastructure code.
package domain

import "reflect"

// Partition is an opaque batch of homogeneous elements crossing a stage
// boundary. The only supported runtime shapes are a slice of T (the normal
// case) and, for barrier-internal use, a map keyed by K holding either a
// slice of V (GroupByKey's partial aggregation) or an accumulator A
// (CombineValues' partial aggregation), or a single bare accumulator A
// (CombineGlobally's partial aggregation). Stages consuming a Partition must
// perform a checked type assertion; a failed assertion is an engine bug,
// never a user-facing error (see EngineBug).
type Partition = any

// TypeTag is a runtime type identity attached to every source and every
// logical edge so that stage boundaries can defensively verify that the
// erased Partition they received actually holds what the static builder
// promised. Equality on Type is authoritative; Name is diagnostic only.
type TypeTag struct {
	Type reflect.Type
	Name string
}

// TypeTagOf returns the TypeTag identifying T.
func TypeTagOf[T any]() TypeTag {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	return TypeTag{Type: t, Name: t.String()}
}

// Equal reports whether two type tags identify the same runtime type.
func (t TypeTag) Equal(other TypeTag) bool { return t.Type == other.Type }

// VecOps is the vtable by which a Source node declares how to measure,
// split, and materialize its payload without the scheduler knowing the
// element type. A plain in-memory slice, a CSV shard set, and a JSONL shard
// set all implement this same three-operation contract.
type VecOps interface {
	// Length reports the total number of elements in the payload, or false
	// if the payload doesn't match the expected concrete type.
	Length(payload any) (int, bool)

	// Split divides the payload into partitions, with n as the requested
	// count. An in-memory slice returns at most n; shard-based sources
	// (CSV, JSONL) ignore n and return one partition per pre-built shard.
	// Payloads that cannot be meaningfully split (length <= 1) return a
	// single partition. Returns false if the payload doesn't match the
	// expected concrete type.
	Split(payload any, n int) ([]Partition, bool)

	// Materialize collapses the payload into a single partition. Returns
	// false if the payload doesn't match the expected concrete type.
	Materialize(payload any) (Partition, bool)
}
