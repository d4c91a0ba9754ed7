package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToSubscribedTopic(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("tenant-a")
	defer cancel()

	b.BroadcastProgress("tenant-a", "vid-1", 10, "Extracting metadata...")

	select {
	case ev := <-ch:
		assert.Equal(t, TypeProgress, ev.Type)
		assert.Equal(t, "vid-1", ev.VideoID)
		assert.Equal(t, 10, ev.Progress)
		assert.Equal(t, "Extracting metadata...", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroadcasterIsolatesTenants(t *testing.T) {
	b := NewBroadcaster()
	chA, cancelA := b.Subscribe("tenant-a")
	defer cancelA()
	chB, cancelB := b.Subscribe("tenant-b")
	defer cancelB()

	b.BroadcastFailed("tenant-a", "vid-1", "probe exploded")

	select {
	case ev := <-chA:
		assert.Equal(t, TypeFailed, ev.Type)
		assert.Equal(t, "probe exploded", ev.Error)
	case <-time.After(time.Second):
		t.Fatal("event not delivered to own tenant")
	}

	select {
	case ev := <-chB:
		t.Fatalf("foreign tenant received event %+v", ev)
	default:
	}
}

func TestBroadcasterPreservesOrderPerSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("tenant-a")
	defer cancel()

	checkpoints := []int{10, 40, 90}
	for _, p := range checkpoints {
		b.BroadcastProgress("tenant-a", "vid-1", p, "")
	}

	for _, want := range checkpoints {
		select {
		case ev := <-ch:
			assert.Equal(t, want, ev.Progress)
		case <-time.After(time.Second):
			t.Fatal("missing progress event")
		}
	}
}

func TestBroadcasterNoReplayForLateSubscriber(t *testing.T) {
	b := NewBroadcaster()

	b.BroadcastCompleted("tenant-a", "vid-1", nil, "Video processing completed")

	ch, cancel := b.Subscribe("tenant-a")
	defer cancel()

	select {
	case ev := <-ch:
		t.Fatalf("late subscriber received replayed event %+v", ev)
	default:
	}
}

func TestBroadcasterCancelStopsDeliveryAndClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("tenant-a")

	cancel()
	// Publishing after cancel must not panic on the closed channel.
	b.BroadcastProgress("tenant-a", "vid-1", 10, "")

	_, open := <-ch
	require.False(t, open, "channel should be closed after cancel")

	// A second cancel is a no-op.
	cancel()
}

func TestBroadcasterDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("tenant-a")
	defer cancel()

	// Overrun the buffer without draining; publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			b.BroadcastProgress("tenant-a", "vid-1", i, fmt.Sprintf("event %d", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	// The buffered prefix is intact, the overflow was dropped.
	received := 0
	for {
		select {
		case ev := <-ch:
			assert.Equal(t, received, ev.Progress)
			received++
		default:
			assert.Equal(t, subscriberBuffer, received)
			return
		}
	}
}
