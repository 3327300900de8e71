package gateway

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// subscriptionBuffer is the per-subscriber event buffer size. A game that
// falls this far behind is stuck; dropping is better than deadlocking the
// platform poller.
const subscriptionBuffer = 256

// Broker fans inbound events out to scoped subscriptions. Platform
// adapters publish into it; each running game consumes its own
// Subscription.
type Broker struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a predicate-filtered subscription.
func (b *Broker) Subscribe(pred func(Event) bool) *Subscription {
	s := &Subscription{
		events: make(chan Event, subscriptionBuffer),
		pred:   pred,
		broker: b,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish delivers an event to every subscription whose predicate accepts
// it. Delivery never blocks.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if s.pred != nil && !s.pred(ev) {
			continue
		}
		select {
		case s.events <- ev:
		default:
			log.Warn().Int("kind", int(ev.Kind)).Msg("subscription buffer full, dropping event")
		}
	}
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscription is an owned, revocable event stream. It is the explicit
// per-game listener handle: created when a game starts, closed exactly
// once when it tears down.
type Subscription struct {
	events chan Event
	pred   func(Event) bool
	broker *Broker
	once   sync.Once
}

// Events returns the delivery channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close revokes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.events)
	})
}
