package eventbus

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browserkit-go/core/event"
)

// plainEvent carries no session.
type plainEvent struct {
	name string
}

func (e *plainEvent) EventName() string {
	return e.name
}

// recorder collects event names delivered to a handler.
type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) handle(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, e.EventName())
}

func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func clicked(sessionID string) event.Event {
	return event.NewActionCompleted(sessionID, "click", "By.id: go", "", time.Millisecond)
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := New(10)
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	bus.Publish(clicked("s1"))
	bus.Close()

	assert.Equal(t, []string{"ActionCompleted"}, rec.Names())
}

func TestEventBus_PreservesPublishOrder(t *testing.T) {
	bus := New(10)
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	bus.Publish(event.NewScriptStarted("s1", "login", 2))
	bus.Publish(clicked("s1"))
	bus.Publish(event.NewActionFailed("s1", "navigate", "http://x", "Failure loading page: http://x", assert.AnError))
	bus.Publish(event.NewScriptStopped("s1", "login", event.StopReasonFailed, 2, assert.AnError))
	bus.Close()

	assert.Equal(t, []string{"ScriptStarted", "ActionCompleted", "ActionFailed", "ScriptStopped"}, rec.Names())
}

func TestEventBus_SubscribersCalledInOrder(t *testing.T) {
	bus := New(10)

	var mu sync.Mutex
	var calls []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(func(e event.Event) {
			mu.Lock()
			calls = append(calls, i)
			mu.Unlock()
		})
	}

	bus.Publish(clicked("s1"))
	bus.Close()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, calls)
}

func TestEventBus_SessionFilter(t *testing.T) {
	bus := New(10)

	s1, s2, all := &recorder{}, &recorder{}, &recorder{}
	bus.SubscribeSession("s1", s1.handle)
	bus.SubscribeSession("s2", s2.handle)
	bus.Subscribe(all.handle)

	bus.Publish(clicked("s1"))
	bus.Publish(&plainEvent{name: "Plain"})
	bus.Close()

	assert.Equal(t, []string{"ActionCompleted"}, s1.Names())
	assert.Empty(t, s2.Names())
	assert.Equal(t, []string{"ActionCompleted", "Plain"}, all.Names())
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := New(10)
	kept, dropped := &recorder{}, &recorder{}
	bus.Subscribe(kept.handle)
	id := bus.Subscribe(dropped.handle)

	bus.Unsubscribe(id)
	bus.Publish(clicked("s1"))
	bus.Close()

	assert.Len(t, kept.Names(), 1)
	assert.Empty(t, dropped.Names())
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := New(10)
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	bus.Close()
	bus.Publish(clicked("s1"))

	assert.Empty(t, rec.Names())
	assert.NotPanics(t, bus.Close)
}

func TestEventBus_HandlerPanic(t *testing.T) {
	var buf bytes.Buffer
	bus := New(10, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	bus.Subscribe(func(e event.Event) {
		panic("handler failed")
	})
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	bus.Publish(clicked("s1"))
	bus.Close()

	assert.Len(t, rec.Names(), 1)
	assert.Contains(t, buf.String(), "Event handler panicked")
	assert.Contains(t, buf.String(), "handler failed")
}

func TestEventBus_ConcurrentPublish(t *testing.T) {
	const numEvents = 100
	bus := New(numEvents)

	var received atomic.Int32
	bus.Subscribe(func(e event.Event) {
		received.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < numEvents; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(clicked("s1"))
		}()
	}
	wg.Wait()
	bus.Close()

	assert.Equal(t, int32(numEvents), received.Load())
}

func TestEventBus_PublishRacingClose(t *testing.T) {
	bus := New(10)
	bus.Subscribe(func(e event.Event) {})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(clicked("s1"))
			}
		}()
	}

	assert.NotPanics(t, bus.Close)
	wg.Wait()
}

func TestEventBus_SubscriptionIDsUnique(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := bus.Subscribe(func(e event.Event) {})
		require.False(t, seen[id], "duplicate subscription ID %q", id)
		seen[id] = true
	}
}

func TestEventBus_CloseDrainsQueue(t *testing.T) {
	bus := New(10)

	var received atomic.Int32
	bus.Subscribe(func(e event.Event) {
		time.Sleep(10 * time.Millisecond)
		received.Add(1)
	})

	for i := 0; i < 5; i++ {
		bus.Publish(clicked("s1"))
	}
	bus.Close()

	assert.Equal(t, int32(5), received.Load())
}

func TestEventBus_DroppedEventLogged(t *testing.T) {
	var buf bytes.Buffer
	bus := New(1, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	bus.Subscribe(func(e event.Event) {
		once.Do(func() { close(started) })
		<-release
	})

	bus.Publish(&plainEvent{name: "first"})
	<-started
	bus.Publish(&plainEvent{name: "second"})
	bus.Publish(&plainEvent{name: "third"})

	close(release)
	bus.Close()

	assert.Contains(t, buf.String(), "event=third")
}
