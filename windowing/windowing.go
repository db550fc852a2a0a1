// Package windowing layers tumbling-window grouping on top of the core
// engine as sugar: a window is just a derived key, and grouping by window
// is just GroupByKey on that derived key, expressed entirely as
// flowbatch.Map/flowbatch.GroupByKey composition.
package windowing

import (
	"github.com/flowbatch/flowbatch"
	"github.com/flowbatch/flowbatch/internal/domain"
)

// KeyWindow pairs a grouping key with the tumbling window it fell into, the
// composite key used to group by both dimensions at once.
type KeyWindow[K comparable] struct {
	Key    K
	Window domain.Window
}

// AttachTimestamps maps pc into domain.Timestamped values using ts to
// extract each element's event time.
func AttachTimestamps[T any](pc flowbatch.PCollection[T], ts func(T) domain.TimestampMs) flowbatch.PCollection[domain.Timestamped[T]] {
	return flowbatch.Map(pc, func(v T) domain.Timestamped[T] {
		return domain.Timestamped[T]{TS: ts(v), Value: v}
	})
}

// KeyByWindow keys every timestamped element by the tumbling window
// (sizeMs, offsetMs) its timestamp falls into.
func KeyByWindow[T any](pc flowbatch.PCollection[domain.Timestamped[T]], sizeMs, offsetMs int64) flowbatch.PCollection[flowbatch.KV[domain.Window, T]] {
	return flowbatch.Map(pc, func(t domain.Timestamped[T]) flowbatch.KV[domain.Window, T] {
		return flowbatch.KV[domain.Window, T]{Key: domain.Tumble(t.TS, sizeMs, offsetMs), Value: t.Value}
	})
}

// GroupByWindow groups a window-keyed collection into one []T per window.
func GroupByWindow[T any](pc flowbatch.PCollection[flowbatch.KV[domain.Window, T]]) flowbatch.PCollection[flowbatch.KV[domain.Window, []T]] {
	return flowbatch.GroupByKey(pc)
}

// KeyByKeyAndWindow keys every timestamped element by both an explicit
// grouping key and its tumbling window, for windowed per-key aggregation
// (e.g. per-user counts in 1-minute tumbling windows).
func KeyByKeyAndWindow[K comparable, T any](pc flowbatch.PCollection[domain.Timestamped[T]], keyOf func(T) K, sizeMs, offsetMs int64) flowbatch.PCollection[flowbatch.KV[KeyWindow[K], T]] {
	return flowbatch.Map(pc, func(t domain.Timestamped[T]) flowbatch.KV[KeyWindow[K], T] {
		kw := KeyWindow[K]{Key: keyOf(t.Value), Window: domain.Tumble(t.TS, sizeMs, offsetMs)}
		return flowbatch.KV[KeyWindow[K], T]{Key: kw, Value: t.Value}
	})
}

// GroupByKeyAndWindow groups a (key, window)-keyed collection into one
// []T per (key, window) pair.
func GroupByKeyAndWindow[K comparable, T any](pc flowbatch.PCollection[flowbatch.KV[KeyWindow[K], T]]) flowbatch.PCollection[flowbatch.KV[KeyWindow[K], []T]] {
	return flowbatch.GroupByKey(pc)
}
