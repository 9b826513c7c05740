package sim

import "github.com/sirupsen/logrus"

// DefaultCacheTopic is the bus topic the OutputCache listens on unless
// configured otherwise.
const DefaultCacheTopic = "cache_quantity"

// Handler receives a published frame together with the quantity name the
// producer tagged it with (empty when the producer relies on the frame's
// own name).
type Handler func(data Frame, quantity string) error

// Subscription identifies one handler registration so it can be removed.
type Subscription struct {
	topic string
	id    int
}

type subscriber struct {
	id int
	fn Handler
}

// Bus is a synchronous topic-keyed dispatcher. Publish invokes every
// handler subscribed to the topic in subscription order, on the caller's
// goroutine; there is no queueing or background delivery. The Bus is owned
// by the simulation context and torn down with Close at the end of a run.
//
// All interaction is expected to happen on one logical thread of control;
// the Bus performs no locking of its own.
type Bus struct {
	nextID int
	subs   map[string][]subscriber
	closed bool
}

// NewBus creates an empty dispatcher.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers fn for every frame published on topic and returns the
// subscription handle needed to remove it again.
func (b *Bus) Subscribe(topic string, fn Handler) Subscription {
	b.nextID++
	sub := subscriber{id: b.nextID, fn: fn}
	b.subs[topic] = append(b.subs[topic], sub)
	logrus.Debugf("bus: subscribed handler %d to topic %q", sub.id, topic)
	return Subscription{topic: topic, id: sub.id}
}

// Unsubscribe removes a previously registered handler. Unknown handles are
// ignored.
func (b *Bus) Unsubscribe(s Subscription) {
	handlers := b.subs[s.topic]
	for i, sub := range handlers {
		if sub.id == s.id {
			b.subs[s.topic] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Publish delivers the frame to every handler subscribed to topic. Delivery
// is synchronous; the first handler error stops dispatch and is returned to
// the publisher. Publishing on a topic with no subscribers, or on a closed
// bus, is a no-op.
func (b *Bus) Publish(topic string, data Frame, quantity string) error {
	if b.closed {
		return nil
	}
	for _, sub := range b.subs[topic] {
		if err := sub.fn(data, quantity); err != nil {
			return err
		}
	}
	return nil
}

// Close drops all subscriptions and makes further Publish calls no-ops.
func (b *Bus) Close() {
	b.closed = true
	b.subs = make(map[string][]subscriber)
}
