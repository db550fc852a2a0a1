package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbatch/flowbatch"
	"github.com/flowbatch/flowbatch/internal/domain"
)

func TestGroupByWindowBucketsIntoTumblingWindows(t *testing.T) {
	p := flowbatch.NewPipeline()
	events := flowbatch.FromSlice(p, []domain.TimestampMs{0, 500, 999, 1000, 1500, 2500})

	ts := AttachTimestamps(events, func(ts domain.TimestampMs) domain.TimestampMs { return ts })
	keyed := KeyByWindow(ts, 1000, 0)
	grouped := GroupByWindow(keyed)

	out, err := flowbatch.Collect(grouped)
	require.NoError(t, err)

	byWindow := map[domain.Window]int{}
	for _, kv := range out {
		byWindow[kv.Key] = len(kv.Value)
	}
	assert.Equal(t, 3, len(byWindow))
	assert.Equal(t, 3, byWindow[domain.NewWindow(0, 1000)])
	assert.Equal(t, 2, byWindow[domain.NewWindow(1000, 2000)])
	assert.Equal(t, 1, byWindow[domain.NewWindow(2000, 3000)])
}

func TestGroupByKeyAndWindowSeparatesKeysWithinTheSameWindow(t *testing.T) {
	type event struct {
		TS   domain.TimestampMs
		User string
	}
	p := flowbatch.NewPipeline()
	events := flowbatch.FromSlice(p, []event{
		{TS: 0, User: "alice"},
		{TS: 100, User: "alice"},
		{TS: 200, User: "bob"},
		{TS: 1100, User: "alice"},
	})

	ts := AttachTimestamps(events, func(e event) domain.TimestampMs { return e.TS })
	keyed := KeyByKeyAndWindow(ts, func(e event) string { return e.User }, 1000, 0)
	grouped := GroupByKeyAndWindow(keyed)

	out, err := flowbatch.Collect(grouped)
	require.NoError(t, err)

	type bucket struct {
		user   string
		window domain.Window
	}
	counts := map[bucket]int{}
	for _, kv := range out {
		counts[bucket{user: kv.Key.Key, window: kv.Key.Window}] = len(kv.Value)
	}
	assert.Equal(t, 2, counts[bucket{user: "alice", window: domain.NewWindow(0, 1000)}])
	assert.Equal(t, 1, counts[bucket{user: "bob", window: domain.NewWindow(0, 1000)}])
	assert.Equal(t, 1, counts[bucket{user: "alice", window: domain.NewWindow(1000, 2000)}])
}
