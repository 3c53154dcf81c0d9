package ami

import (
	"fmt"
	"log/slog"
	"sync"
)

// EventHandler receives one event message. Handlers run off the read
// goroutine; a slow or panicking handler never stalls decoding.
type EventHandler func(event *Message)

// Subscription is the opaque handle returned by On. Registering the same
// function twice yields two distinct handles, each removable on its own.
type Subscription struct {
	event   string
	handler EventHandler
}

// Event returns the event name this subscription listens for.
func (sub *Subscription) Event() string { return sub.event }

// eventBus maps event names to their ordered subscription lists. Names
// match exactly as sent by the remote side (case-sensitive).
//
// Deliveries queue through a single FIFO drained off the read goroutine,
// so handlers observe event messages in arrival order even across
// different messages.
type eventBus struct {
	lock     sync.Mutex
	handlers map[string][]*Subscription
	queue    []delivery
	draining bool
}

// delivery is one event message paired with the subscription snapshot
// taken at dispatch time.
type delivery struct {
	subs    []*Subscription
	event   string
	message *Message
	logger  *slog.Logger
}

func newEventBus() *eventBus {
	return &eventBus{handlers: make(map[string][]*Subscription)}
}

func (bus *eventBus) subscribe(event string, handler EventHandler) *Subscription {
	sub := &Subscription{event: event, handler: handler}

	bus.lock.Lock()
	bus.handlers[event] = append(bus.handlers[event], sub)
	bus.lock.Unlock()

	return sub
}

func (bus *eventBus) unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	bus.lock.Lock()
	defer bus.lock.Unlock()

	subs := bus.handlers[sub.event]
	for i, candidate := range subs {
		if candidate == sub {
			bus.handlers[sub.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(bus.handlers[sub.event]) == 0 {
		delete(bus.handlers, sub.event)
	}
}

// dispatch enqueues one event message for every subscription registered
// for its name. An event with no subscribers is a no-op. The caller (the
// read goroutine) never runs handlers itself: the first enqueue after an
// idle period starts a drain goroutine, and that goroutine exits once the
// queue empties.
func (bus *eventBus) dispatch(event string, message *Message, logger *slog.Logger) {
	bus.lock.Lock()
	subs := bus.handlers[event]
	if len(subs) == 0 {
		bus.lock.Unlock()
		return
	}
	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)

	bus.queue = append(bus.queue, delivery{snapshot, event, message, logger})
	if bus.draining {
		bus.lock.Unlock()
		return
	}
	bus.draining = true
	bus.lock.Unlock()

	go bus.drain()
}

// drain runs queued deliveries in FIFO order, each message's handlers in
// registration order. At most one drain goroutine exists at a time; that
// is what makes cross-message delivery order match arrival order.
func (bus *eventBus) drain() {
	for {
		bus.lock.Lock()
		if len(bus.queue) == 0 {
			bus.queue = nil
			bus.draining = false
			bus.lock.Unlock()
			return
		}
		next := bus.queue[0]
		bus.queue = bus.queue[1:]
		bus.lock.Unlock()

		for _, sub := range next.subs {
			invokeHandler(sub.handler, next.message, next.event, next.logger)
		}
	}
}

// invokeHandler contains a handler panic so later handlers still run.
func invokeHandler(handler EventHandler, message *Message, event string, logger *slog.Logger) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("event handler panicked",
				"event", event,
				"panic", fmt.Sprint(recovered))
		}
	}()
	handler(message)
}
