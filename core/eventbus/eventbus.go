// Package eventbus fans session and script events out to subscribers such as
// the run history recorder.
package eventbus

import (
	"browserkit-go/core/event"
)

// EventBus delivers published events to subscribers on a single dispatch
// goroutine, in publish order.
type EventBus interface {
	// Publish queues e for delivery. It never blocks; when the queue is full
	// the event is dropped and logged.
	Publish(e event.Event)

	// Subscribe registers handler for every event and returns its subscription ID.
	Subscribe(handler EventHandler) string

	// SubscribeSession registers handler for the events of one session only.
	// Events that do not implement event.SessionEvent are not delivered.
	SubscribeSession(sessionID string, handler EventHandler) string

	// Unsubscribe removes a subscription by its ID.
	Unsubscribe(subscriptionID string)

	// Close delivers the events still queued, then stops dispatching.
	// Publish is a no-op afterwards.
	Close()
}

// EventHandler handles one event. Handlers run on the dispatch goroutine and
// should not block for long.
type EventHandler func(e event.Event)
