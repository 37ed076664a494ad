package mixevents

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// DefaultBufferSize is used when NewBus gets a non-positive size
const DefaultBufferSize = 1000

// Handler receives dispatched events
type Handler func(Event)

// UnsubscribeFunc removes the handler it was returned for
type UnsubscribeFunc func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers on a single dispatch goroutine.
// Publish never blocks; when the buffer is full the event is dropped.
type Bus struct {
	mu     sync.RWMutex
	byType map[EventType][]subscription
	all    []subscription
	nextID uint64

	events   chan Event
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Uint64
}

// NewBus creates a bus buffering up to bufferSize undelivered events
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		byType:   make(map[EventType][]subscription),
		events:   make(chan Event, bufferSize),
		stopChan: make(chan struct{}),
	}
}

// Subscribe registers handler for one event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.byType[eventType] = append(b.byType[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byType[eventType] = remove(b.byType[eventType], id)
	}
}

// SubscribeAll registers handler for every event type
func (b *Bus) SubscribeAll(handler Handler) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.all = append(b.all, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

func remove(subs []subscription, id uint64) []subscription {
	for i, s := range subs {
		if s.id == id {
			subs[i] = subs[len(subs)-1]
			return subs[:len(subs)-1]
		}
	}
	return subs
}

// Publish queues event for dispatch without blocking
func (b *Bus) Publish(event Event) {
	select {
	case b.events <- event:
	default:
		b.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded on a full buffer
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Start runs the dispatch goroutine
func (b *Bus) Start() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case event := <-b.events:
				b.dispatch(event)
			case <-b.stopChan:
				for {
					select {
					case event := <-b.events:
						b.dispatch(event)
					default:
						return
					}
				}
			}
		}
	}()
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.byType[event.Type] {
		b.safeCall(s.handler, event)
	}
	for _, s := range b.all {
		b.safeCall(s.handler, event)
	}
}

// safeCall keeps one panicking handler from killing dispatch
func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Event handler panic for %s: %v", event.Type, r)
		}
	}()
	handler(event)
}

// Stop drains queued events and waits for dispatch to finish. It is safe
// to call more than once.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
	b.wg.Wait()
}
