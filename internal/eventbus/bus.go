package eventbus

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/wagiedev/vmcctl/internal/message"
	"github.com/wagiedev/vmcctl/internal/observability"
)

// AllKinds subscribes to every event regardless of kind.
const AllKinds = "*"

// queueWarnStep controls how often a growing backlog is logged.
const queueWarnStep = 1024

// Handler receives one event. It runs on the bus delivery goroutine.
type Handler func(event message.Event)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id      uint64
	kind    string
	handler Handler
	active  atomic.Bool
	bus     *Bus
}

// Kind returns the event kind this subscription listens for.
func (s *Subscription) Kind() string {
	return s.kind
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Unsubscribe stops delivery to this subscription. Deliveries already
// running are not interrupted. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.bus.Unsubscribe(s)
}

// delivery is one queued event with the subscriber set captured at publish time.
type delivery struct {
	event message.Event
	subs  []*Subscription
}

// Bus is a kind-keyed publish/subscribe registry with asynchronous delivery.
type Bus struct {
	log     *slog.Logger
	metrics *observability.Metrics

	subsMu sync.RWMutex
	subs   map[string][]*Subscription
	nextID uint64

	queueMu sync.Mutex
	cond    *sync.Cond
	queue   []delivery
	closed  bool

	wg sync.WaitGroup
}

// New creates a bus and starts its delivery goroutine.
// metrics may be nil.
func New(log *slog.Logger, metrics *observability.Metrics) *Bus {
	b := &Bus{
		log:     log.With("component", "eventbus"),
		metrics: metrics,
		subs:    make(map[string][]*Subscription, 8),
		queue:   make([]delivery, 0, 16),
	}
	b.cond = sync.NewCond(&b.queueMu)

	b.wg.Add(1)

	go b.deliverLoop()

	return b
}

// Subscribe registers handler for events of kind. Use AllKinds to receive
// every event. Handlers only see events published after they subscribed.
func (b *Bus) Subscribe(kind string, handler Handler) *Subscription {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	b.nextID++

	sub := &Subscription{
		id:      b.nextID,
		kind:    kind,
		handler: handler,
		bus:     b,
	}
	sub.active.Store(true)

	b.subs[kind] = append(b.subs[kind], sub)

	b.log.Debug("Subscribed", "kind", kind, "subscription_id", sub.id)

	return sub
}

// Unsubscribe removes sub from the bus.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil || !sub.active.CompareAndSwap(true, false) {
		return
	}

	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	b.subs[sub.kind] = slices.DeleteFunc(b.subs[sub.kind], func(s *Subscription) bool {
		return s == sub
	})
	if len(b.subs[sub.kind]) == 0 {
		delete(b.subs, sub.kind)
	}

	b.log.Debug("Unsubscribed", "kind", sub.kind, "subscription_id", sub.id)
}

// SubscriberCount returns the number of live subscriptions for kind.
func (b *Bus) SubscriberCount(kind string) int {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()

	return len(b.subs[kind])
}

// Publish queues event for every current subscriber of its kind.
// It never blocks on subscriber execution.
func (b *Bus) Publish(event message.Event) {
	kind := event.EventType()

	b.metrics.EventPublished(kind)

	subs := b.snapshot(kind)
	if len(subs) == 0 {
		b.log.Debug("No subscribers for event", "kind", kind)

		return
	}

	b.queueMu.Lock()
	defer b.queueMu.Unlock()

	if b.closed {
		b.log.Debug("Event published after close, dropping", "kind", kind)

		return
	}

	b.queue = append(b.queue, delivery{event: event, subs: subs})
	if n := len(b.queue); n%queueWarnStep == 0 {
		b.log.Warn("Event delivery backlog growing", "queued", n)
	}

	b.cond.Signal()
}

// snapshot returns the subscribers for kind plus wildcard subscribers,
// in subscription order.
func (b *Bus) snapshot(kind string) []*Subscription {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()

	specific := b.subs[kind]
	wildcard := b.subs[AllKinds]

	if kind == AllKinds {
		wildcard = nil
	}

	out := make([]*Subscription, 0, len(specific)+len(wildcard))
	out = append(out, specific...)
	out = append(out, wildcard...)

	slices.SortFunc(out, func(a, c *Subscription) int {
		return cmp.Compare(a.id, c.id)
	})

	return out
}

// Close stops delivery. Events still queued are dropped. Close does not wait
// for a handler that is currently running; use Wait for that.
func (b *Bus) Close() {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	dropped := len(b.queue)
	b.queue = nil
	b.cond.Broadcast()

	b.log.Debug("Event bus closed", "dropped", dropped)
}

// Wait blocks until the delivery goroutine exits after Close.
// Must not be called from inside a handler.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) deliverLoop() {
	defer b.wg.Done()
	defer b.log.Debug("Event delivery loop stopped")

	for {
		b.queueMu.Lock()

		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}

		if b.closed {
			b.queueMu.Unlock()

			return
		}

		next := b.queue[0]
		b.queue[0] = delivery{}
		b.queue = b.queue[1:]

		b.queueMu.Unlock()

		for _, sub := range next.subs {
			if !sub.active.Load() {
				continue
			}

			b.invoke(sub, next.event)
		}
	}
}

// invoke runs one handler, converting a panic into a logged fault.
func (b *Bus) invoke(sub *Subscription, event message.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.SubscriberFault(event.EventType())
			b.log.Error("Subscriber panicked",
				"kind", event.EventType(),
				"subscription_id", sub.id,
				"panic", r,
			)
		}
	}()

	sub.handler(event)
}
