package stream

import (
	"strings"
	"testing"
	"time"
)

func drain(t *testing.T, sub *Subscription, want int) []Event {
	t.Helper()

	events := make([]Event, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("channel closed after %d events, want %d", len(events), want)
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events, want %d", len(events), want)
		}
	}
	return events
}

func TestStreamReplyMonotonicPrefixes(t *testing.T) {
	d := NewDispatcher(2, 0)
	sub := d.Subscribe("s1")
	defer sub.Close()

	text := "dạ em đã giữ bàn cho bốn người lúc bảy giờ tối ạ"
	go d.StreamReply("s1", text)

	var events []Event
	for ev := range sub.Events() {
		events = append(events, ev)
		if ev.Type == EventComplete {
			break
		}
	}

	if len(events) < 2 {
		t.Fatalf("expected typing events before complete, got %d events", len(events))
	}

	prev := ""
	for _, ev := range events[:len(events)-1] {
		if ev.Type != EventTyping {
			t.Fatalf("unexpected event type %s", ev.Type)
		}
		if ev.IsComplete {
			t.Fatal("typing event flagged complete")
		}
		if !strings.HasPrefix(ev.Content, prev) || len(ev.Content) < len(prev) {
			t.Fatalf("typing content not a prefix-extension: %q -> %q", prev, ev.Content)
		}
		if !strings.HasPrefix(text, ev.Content) {
			t.Fatalf("typing content is not a prefix of the reply: %q", ev.Content)
		}
		prev = ev.Content
	}

	last := events[len(events)-1]
	if last.Type != EventComplete || !last.IsComplete {
		t.Fatalf("last event not complete: %+v", last)
	}
	if last.Content != text {
		t.Fatalf("complete event content mismatch: %q", last.Content)
	}
	if !strings.HasPrefix(last.Content, prev) {
		t.Fatalf("complete is not a superstring of last typing: %q vs %q", prev, last.Content)
	}
}

func TestStreamReplyEmitsCompleteExactlyOnce(t *testing.T) {
	d := NewDispatcher(3, 0)
	sub := d.Subscribe("s1")
	defer sub.Close()

	go d.StreamReply("s1", "một hai ba bốn năm sáu bảy")

	completes := 0
	deadline := time.After(time.Second)
loop:
	for {
		select {
		case ev := <-sub.Events():
			if ev.Type == EventComplete {
				completes++
			}
		case <-deadline:
			break loop
		}
	}
	if completes != 1 {
		t.Fatalf("expected exactly one complete event, got %d", completes)
	}
}

func TestIdempotentJoinFanOut(t *testing.T) {
	d := NewDispatcher(100, 0)
	first := d.Subscribe("s1")
	second := d.Subscribe("s1")
	defer first.Close()
	defer second.Close()

	if d.ListenerCount("s1") != 2 {
		t.Fatalf("expected 2 listeners, got %d", d.ListenerCount("s1"))
	}

	d.Thinking("s1")
	d.StreamReply("s1", "chào anh")

	a := drain(t, first, 2)
	b := drain(t, second, 2)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("listeners diverged at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
	if a[0].Type != EventThinking || a[1].Type != EventComplete {
		t.Fatalf("unexpected sequence: %+v", a)
	}
}

func TestEventsScopedToSession(t *testing.T) {
	d := NewDispatcher(3, 0)
	mine := d.Subscribe("s1")
	other := d.Subscribe("s2")
	defer mine.Close()
	defer other.Close()

	d.Thinking("s1")

	select {
	case ev := <-other.Events():
		t.Fatalf("cross-session event leaked: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	drain(t, mine, 1)
}

func TestCloseSessionDisconnectsListeners(t *testing.T) {
	d := NewDispatcher(3, 0)
	sub := d.Subscribe("s1")

	d.CloseSession("s1")

	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed channel")
	}
	if d.ListenerCount("s1") != 0 {
		t.Fatalf("registry not cleaned: %d", d.ListenerCount("s1"))
	}

	// Closing again on the subscription side must not panic.
	sub.Close()
}

func TestSlowListenerDoesNotBlockPublish(t *testing.T) {
	d := NewDispatcher(3, 0)
	sub := d.Subscribe("s1")
	defer sub.Close()

	// Never drained; publishing far past the buffer must still return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			d.Publish("s1", Event{Type: EventTyping, Content: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow listener")
	}
}
