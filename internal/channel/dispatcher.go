package channel

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Listener receives the payload of a dispatched topic.
type Listener func(Payload)

// Subscription is the handle returned by Register. Unregister matches it by
// identity, so registering the same Listener twice yields two handles.
type Subscription struct {
	topic    string
	listener Listener
}

// Topic returns the topic the subscription listens on.
func (s *Subscription) Topic() string {
	return s.topic
}

// Dispatcher is a topic → ordered listener registry.
type Dispatcher struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[string][]*Subscription
}

// NewDispatcher creates an empty registry.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:    logger,
		listeners: make(map[string][]*Subscription),
	}
}

// Register appends a listener to the topic.
func (d *Dispatcher) Register(topic string, listener Listener) *Subscription {
	sub := &Subscription{topic: topic, listener: listener}

	d.mu.Lock()
	d.listeners[topic] = append(d.listeners[topic], sub)
	d.mu.Unlock()

	return sub
}

// Unregister removes the subscription. No-op if it is nil or already gone.
func (d *Dispatcher) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.listeners[sub.topic]
	for i, s := range subs {
		if s == sub {
			// Copy so that in-flight dispatch snapshots stay intact
			next := make([]*Subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(d.listeners, sub.topic)
			} else {
				d.listeners[sub.topic] = next
			}
			return
		}
	}
}

// Dispatch calls every listener of topic in registration order. A panicking
// listener is logged and skipped; the remaining listeners still run.
func (d *Dispatcher) Dispatch(topic string, payload Payload) {
	d.mu.RLock()
	subs := d.listeners[topic]
	d.mu.RUnlock()

	for _, sub := range subs {
		d.safeCall(sub, payload)
	}
}

// Clear removes every subscription on every topic.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.listeners = make(map[string][]*Subscription)
	d.mu.Unlock()
}

// Count returns the number of listeners on topic.
func (d *Dispatcher) Count(topic string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[topic])
}

func (d *Dispatcher) safeCall(sub *Subscription, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panicked",
				"topic", sub.topic,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	sub.listener(payload)
}
