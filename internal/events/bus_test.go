package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBus_BasicPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	received := make(chan Event, 1)
	bus.Subscribe(func(e Event) {
		received <- e
	})

	bus.Publish(NewLookupCompletedEvent("********8901", 1, "SPAM"))

	select {
	case got := <-received:
		le, ok := got.(LookupCompletedEvent)
		if !ok {
			t.Fatalf("expected LookupCompletedEvent, got %T", got)
		}
		if le.MaskedNumber != "********8901" || le.SpamScore != 1 || le.Reputation != "SPAM" {
			t.Errorf("unexpected event: %+v", le)
		}
		if le.Type() != EventLookupCompleted {
			t.Errorf("Type() = %v", le.Type())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		bus.Subscribe(func(e Event) {
			count.Add(1)
			wg.Done()
		})
	}

	bus.Publish(NewStreamOpenedEvent("stream-1", "127.0.0.1:1234"))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if count.Load() != 3 {
			t.Errorf("expected 3 handlers called, got %d", count.Load())
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout: only %d handlers called", count.Load())
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count atomic.Int32
	unsub := bus.Subscribe(func(e Event) {
		count.Add(1)
	})
	unsub()

	bus.Publish(NewLookupFailedEvent("***", "rate limited"))

	// Give the dispatch goroutine a moment; nothing should arrive.
	time.Sleep(50 * time.Millisecond)
	if count.Load() != 0 {
		t.Errorf("handler called %d times after unsubscribe", count.Load())
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus()
	bus.Close()
	bus.Close() // Idempotent.

	// Must not panic or block.
	bus.Publish(NewStreamClosedEvent("stream-1", "lifetime expired"))
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		typ  EventType
		want string
	}{
		{EventLookupCompleted, "lookup_completed"},
		{EventLookupFailed, "lookup_failed"},
		{EventStreamOpened, "stream_opened"},
		{EventStreamClosed, "stream_closed"},
		{EventType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
