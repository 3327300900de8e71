package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestBrokerPredicateScoping(t *testing.T) {
	b := NewBroker()

	a := b.Subscribe(func(ev Event) bool { return ev.AreaID == "a" })
	all := b.Subscribe(nil)
	defer a.Close()
	defer all.Close()

	b.Publish(Event{Kind: EventMessage, AreaID: "a"})
	b.Publish(Event{Kind: EventMessage, AreaID: "b"})

	assert.Equal(t, "a", recvEvent(t, a).AreaID)
	select {
	case ev := <-a.Events():
		t.Fatalf("scoped subscription leaked event from area %q", ev.AreaID)
	default:
	}

	assert.Equal(t, "a", recvEvent(t, all).AreaID)
	assert.Equal(t, "b", recvEvent(t, all).AreaID)
}

func TestSubscriptionCloseIdempotent(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe(nil)

	s.Close()
	assert.NotPanics(t, s.Close)

	_, open := <-s.Events()
	assert.False(t, open, "a closed subscription's channel is closed")

	// publishing after close must not panic or deliver
	b.Publish(Event{Kind: EventMessage})
}

func TestBrokerDropsWhenSaturated(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe(nil)
	defer s.Close()

	for i := 0; i < subscriptionBuffer+10; i++ {
		b.Publish(Event{Kind: EventMessage})
	}

	delivered := 0
	for {
		select {
		case <-s.Events():
			delivered++
			continue
		default:
		}
		break
	}
	require.Equal(t, subscriptionBuffer, delivered, "overflow is dropped, never blocking the publisher")
}
