// Package flowbatch is the public fluent combinator API: construct a
// Pipeline, build a DAG by chaining PCollection combinators from a source,
// and run a terminal Collect* operation. It is a thin generic wrapper over
// internal/application -- surface-syntax sugar, not new engine logic.
package flowbatch

import "github.com/flowbatch/flowbatch/internal/application"

// Pipeline is the graph builder every PCollection in a program shares. It
// is a direct re-export of the application layer's clonable handle: copying
// a Pipeline value shares the same underlying graph.
type Pipeline = application.Pipeline

// NewPipeline creates an empty pipeline ready to accept a source.
func NewPipeline() *Pipeline {
	return application.NewPipeline()
}

// connectOrPanic surfaces a Pipeline.Connect failure by panicking. The
// statically typed combinators in this package make every Connect call they
// issue internally unreachable-to-fail (types always match, every node has
// exactly one producer, nodes always exist) -- reaching one here is a bug
// in this package, not a caller mistake, so there is no value in plumbing
// an error return through every combinator for it.
func connectOrPanic(err error) {
	if err != nil {
		panic(err)
	}
}
