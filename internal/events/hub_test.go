package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndSubscribe(t *testing.T) {
	h := NewHub(16)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish("directive.received", map[string]string{"message_id": "m1"})

	select {
	case ev := <-ch:
		assert.Equal(t, "directive.received", ev.Type)
		assert.Equal(t, int64(1), ev.ID)
		assert.JSONEq(t, `{"message_id":"m1"}`, string(ev.Data))
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestPublishNilData(t *testing.T) {
	h := NewHub(16)
	h.Publish("tick", nil)
	events := h.SnapshotSince(0)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{}`, string(events[0].Data))
}

func TestSnapshotSince(t *testing.T) {
	h := NewHub(16)
	for range 5 {
		h.Publish("e", nil)
	}

	assert.Len(t, h.SnapshotSince(0), 5)
	assert.Len(t, h.SnapshotSince(3), 2)
	assert.Len(t, h.SnapshotSince(5), 0)
}

func TestRingEvicts(t *testing.T) {
	h := NewHub(4)
	for range 10 {
		h.Publish("e", nil)
	}

	events := h.SnapshotSince(0)
	require.Len(t, events, 4)
	assert.Equal(t, int64(7), events[0].ID)
	assert.Equal(t, int64(10), events[3].ID)
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub(16)
	ch, cancel := h.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic or deliver.
	h.Publish("e", nil)
}

// A subscriber that never drains loses events instead of blocking Publish.
func TestSlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub(16)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range 300 { // more than the subscriber buffer holds
			h.Publish("e", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestZeroCapacityDefaults(t *testing.T) {
	h := NewHub(0)
	h.Publish("e", nil)
	assert.Len(t, h.SnapshotSince(0), 1)
}
