package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/gene2go-expander/pkg/logging"
)

// ErrClosed is returned once the broker has been closed.
var ErrClosed = errors.New("status broker is closed")

// subscriberBuffer is how many statuses a subscriber may lag behind.
const subscriberBuffer = 16

// Broker fans run statuses out to subscribers. Only the latest status is
// kept: a new subscriber starts from it and a lagging one skips to it.
type Broker struct {
	mu      sync.Mutex
	subs    map[*Subscriber]struct{}
	latest  *Event
	status  RunStatus
	version int
	closed  bool
}

// NewBroker creates a broker with no status yet.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscriber]struct{})}
}

// PublishRunStatus records status as the latest one and delivers it to every
// subscriber without blocking.
func (b *Broker) PublishRunStatus(status RunStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encoding run status: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	b.version++
	event := Event{Topic: TopicRunStatus, Type: status.State, Data: data, Version: b.version}
	b.latest = &event
	b.status = status

	for sub := range b.subs {
		sub.deliver(event)
	}
	return nil
}

// Latest returns the most recent status, false before the first publish.
func (b *Broker) Latest() (RunStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status, b.latest != nil
}

// Subscribe registers a subscriber that first receives the latest status, if
// any. The subscription ends when ctx is done, on Close, or when the broker
// closes; its channel is closed in each case.
func (b *Broker) Subscribe(ctx context.Context) (*Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &Subscriber{broker: b, events: make(chan Event, subscriberBuffer)}
	if b.latest != nil {
		sub.events <- *b.latest
	}
	b.subs[sub] = struct{}{}
	sub.stop = context.AfterFunc(ctx, sub.Close)

	logging.Debug("run status subscriber added", "subscribers", len(b.subs))
	return sub, nil
}

// Close ends every subscription. Further publishes fail with ErrClosed.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		b.drop(sub)
	}
	return nil
}

func (b *Broker) remove(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		b.drop(sub)
	}
}

// drop unregisters sub. Called with the lock held.
func (b *Broker) drop(sub *Subscriber) {
	delete(b.subs, sub)
	close(sub.events)
	sub.stop()
}

// Subscriber receives run status events from a Broker.
type Subscriber struct {
	broker *Broker
	events chan Event
	stop   func() bool // guarded by broker.mu
}

// Events returns the event channel. It is closed when the subscription ends.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscriber) Close() {
	s.broker.remove(s)
}

// deliver sends event, dropping the oldest queued status when the subscriber
// is full. Called with the broker lock held, so it is the only sender.
func (s *Subscriber) deliver(event Event) {
	select {
	case s.events <- event:
		return
	default:
	}

	select {
	case <-s.events:
		logging.Warn("run status subscriber is lagging, dropped an old status")
	default:
	}
	s.events <- event
}
