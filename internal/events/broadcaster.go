package events

import (
	"sync"
)

// Event types carried on the push channel. Names match the wire events the
// frontend listens for.
const (
	TypeProgress  = "video:progress"
	TypeCompleted = "video:completed"
	TypeFailed    = "video:failed"
)

// Event is one push-channel message. Fields are populated per type:
// progress events carry Progress+Message, completed events carry Video+Message,
// failed events carry Error.
type Event struct {
	Type     string      `json:"-"`
	VideoID  string      `json:"videoId"`
	Progress int         `json:"progress,omitempty"`
	Message  string      `json:"message,omitempty"`
	Video    interface{} `json:"video,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// subscriberBuffer bounds each observer's queue. A slow observer that falls
// this far behind starts losing events; delivery is best-effort.
const subscriberBuffer = 16

// Broadcaster fans events out to observers subscribed to a topic. Topics are
// tenant ids, so observers only ever see events for their own tenant.
// Delivery is at-most-once with no replay: an observer that connects after an
// event fired never receives it. Events published to one subscriber arrive in
// publish order because each subscriber drains a single channel.
type Broadcaster struct {
	mu     sync.RWMutex
	topics map[string]map[chan Event]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		topics: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers an observer on a topic. The returned cancel function
// removes the subscription and closes the channel; it is safe to call more
// than once.
func (b *Broadcaster) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[chan Event]struct{})
		b.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.topics[topic]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.topics, topic)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// BroadcastProgress emits a progress checkpoint for a video.
func (b *Broadcaster) BroadcastProgress(topic, videoID string, progress int, message string) {
	b.publish(topic, Event{
		Type:     TypeProgress,
		VideoID:  videoID,
		Progress: progress,
		Message:  message,
	})
}

// BroadcastCompleted emits a completion event carrying the full record.
func (b *Broadcaster) BroadcastCompleted(topic, videoID string, video interface{}, message string) {
	b.publish(topic, Event{
		Type:    TypeCompleted,
		VideoID: videoID,
		Video:   video,
		Message: message,
	})
}

// BroadcastFailed emits a failure event with the error description.
func (b *Broadcaster) BroadcastFailed(topic, videoID, errorMessage string) {
	b.publish(topic, Event{
		Type:    TypeFailed,
		VideoID: videoID,
		Error:   errorMessage,
	})
}

func (b *Broadcaster) publish(topic string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.topics[topic] {
		select {
		case ch <- ev:
		default:
			// Observer queue is full; drop rather than block the pipeline.
		}
	}
}
