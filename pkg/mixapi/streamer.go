package mixapi

import (
	"sync"

	"github.com/txn2/pimixer/pkg/mixapi/types"
	"github.com/txn2/pimixer/pkg/mixevents"
)

const subscriberBuffer = 100

// busStreamer turns bus subscriptions into per-client channels. Slow
// clients lose events rather than stall dispatch.
type busStreamer struct {
	bus *mixevents.Bus
}

// NewEventStreamer adapts bus for the SSE endpoint
func NewEventStreamer(bus *mixevents.Bus) types.EventStreamer {
	return &busStreamer{bus: bus}
}

func (s *busStreamer) Subscribe() (<-chan mixevents.Event, func()) {
	ch := make(chan mixevents.Event, subscriberBuffer)
	unsub := s.bus.SubscribeAll(forward(ch))
	return ch, closer(ch, unsub)
}

func (s *busStreamer) SubscribeType(eventType mixevents.EventType) (<-chan mixevents.Event, func()) {
	ch := make(chan mixevents.Event, subscriberBuffer)
	unsub := s.bus.Subscribe(eventType, forward(ch))
	return ch, closer(ch, unsub)
}

func forward(ch chan mixevents.Event) mixevents.Handler {
	return func(e mixevents.Event) {
		select {
		case ch <- e:
		default:
		}
	}
}

// closer unsubscribes before closing so dispatch never sends on a closed
// channel
func closer(ch chan mixevents.Event, unsub mixevents.UnsubscribeFunc) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			close(ch)
		})
	}
}
