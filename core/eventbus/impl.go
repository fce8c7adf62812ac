package eventbus

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"browserkit-go/core/event"
)

type subscription struct {
	id        string
	seq       uint64
	handler   EventHandler
	sessionID string // empty matches every event
}

// Option configures a channelEventBus.
type Option func(*channelEventBus)

// WithLogger sets the logger used for dropped events and handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *channelEventBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// channelEventBus is a channel-based implementation of EventBus.
type channelEventBus struct {
	eventChan     chan event.Event
	subscriptions map[string]*subscription
	nextSeq       uint64
	mu            sync.RWMutex
	// sendMu guards eventChan against a send racing with close.
	sendMu sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New starts a bus queueing up to bufferSize events.
func New(bufferSize int, opts ...Option) EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	bus := &channelEventBus{
		eventChan:     make(chan event.Event, bufferSize),
		subscriptions: make(map[string]*subscription),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(bus)
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Publish queues e for delivery.
func (b *channelEventBus) Publish(e event.Event) {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()

	if b.closed {
		return
	}

	select {
	case b.eventChan <- e:
	default:
		b.logger.Warn("Event dropped, bus buffer full", "event", e.EventName())
	}
}

// Subscribe subscribes to all events.
func (b *channelEventBus) Subscribe(handler EventHandler) string {
	return b.subscribe("", handler)
}

// SubscribeSession subscribes to events from a specific session.
func (b *channelEventBus) SubscribeSession(sessionID string, handler EventHandler) string {
	return b.subscribe(sessionID, handler)
}

func (b *channelEventBus) subscribe(sessionID string, handler EventHandler) string {
	id := uuid.NewString()

	b.mu.Lock()
	b.nextSeq++
	b.subscriptions[id] = &subscription{
		id:        id,
		seq:       b.nextSeq,
		handler:   handler,
		sessionID: sessionID,
	}
	b.mu.Unlock()

	return id
}

// Unsubscribe removes a subscription by its ID.
func (b *channelEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	delete(b.subscriptions, subscriptionID)
	b.mu.Unlock()
}

// Close drains the queue and waits for the dispatcher to finish.
func (b *channelEventBus) Close() {
	b.sendMu.Lock()
	if b.closed {
		b.sendMu.Unlock()
		return
	}
	b.closed = true
	close(b.eventChan)
	b.sendMu.Unlock()

	b.wg.Wait()
}

func (b *channelEventBus) dispatch() {
	defer b.wg.Done()

	for e := range b.eventChan {
		b.deliverEvent(e)
	}
}

// deliverEvent calls every matching handler in subscription order.
func (b *channelEventBus) deliverEvent(e event.Event) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })

	var eventSessionID string
	if se, ok := e.(event.SessionEvent); ok {
		eventSessionID = se.SessionID()
	}

	for _, sub := range subs {
		if sub.sessionID != "" {
			if eventSessionID == "" || sub.sessionID != eventSessionID {
				continue
			}
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Event handler panicked",
						"event", e.EventName(),
						"subscription", sub.id,
						"panic", r)
				}
			}()
			sub.handler(e)
		}()
	}
}
