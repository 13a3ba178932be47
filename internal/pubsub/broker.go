// Package pubsub provides an in-process broker that fans trajectory events
// out to subscribers. Delivery is best effort: a subscriber that cannot keep
// up misses events rather than blocking the publisher.
package pubsub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/wallpath/internal/monitoring"
)

// Metadata is the small summary record attached to each event.
type Metadata struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Obstacles int     `json:"obstacles"`
	Duration  float64 `json:"duration"`
}

// Event announces that a trajectory was computed.
type Event struct {
	TrajectoryID string   `json:"trajectory_id"`
	Metadata     Metadata `json:"metadata"`
}

// subscriberBuffer is the per-subscriber channel depth. Events beyond this
// backlog are dropped for that subscriber.
const subscriberBuffer = 16

// Broker fans events out to any number of subscribers.
type Broker struct {
	mu          sync.Mutex
	subscribers map[string]chan Event
	closed      bool
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its id and event
// channel. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are
// ignored.
func (b *Broker) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Publish delivers the event to every subscriber that has buffer space.
// It never blocks.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			monitoring.Logf("pubsub: dropping event %s for slow subscriber %s", ev.TrajectoryID, id)
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op and further
// Subscribe calls return an already-closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
