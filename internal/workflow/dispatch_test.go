package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"intakebot/internal/logger"
)

type recordingHandler struct {
	mu    sync.Mutex
	seen  map[int64][]string
	rids  map[int64][]string
	delay time.Duration
	gate  chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		seen: make(map[int64][]string),
		rids: make(map[int64][]string),
	}
}

func (h *recordingHandler) Handle(ctx context.Context, ev Event) {
	if h.gate != nil {
		<-h.gate
	}
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.seen[ev.UserID] = append(h.seen[ev.UserID], ev.Text)
	h.rids[ev.UserID] = append(h.rids[ev.UserID], logger.RIDFrom(ctx))
	h.mu.Unlock()
}

func (h *recordingHandler) order(userID int64) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen[userID]...)
}

func (h *recordingHandler) ridOrder(userID int64) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.rids[userID]...)
}

func TestDispatcherPreservesPerUserOrder(t *testing.T) {
	h := newRecordingHandler()
	h.delay = time.Millisecond
	d := NewDispatcher(h, Options{MaxPending: 64})
	ctx := context.Background()

	labels := []string{"a", "b", "c", "d", "e", "f"}
	for _, l := range labels {
		if err := d.Submit(ctx, Event{Kind: EventText, UserID: 1, Text: l}); err != nil {
			t.Fatalf("Submit(%s): %v", l, err)
		}
	}
	d.Close()

	got := h.order(1)
	if len(got) != len(labels) {
		t.Fatalf("handled %d events, want %d", len(got), len(labels))
	}
	for i, l := range labels {
		if got[i] != l {
			t.Fatalf("order broken at %d: got %v", i, got)
		}
	}
}

func TestDispatcherRunsUsersIndependently(t *testing.T) {
	h := newRecordingHandler()
	h.gate = make(chan struct{})
	d := NewDispatcher(h, Options{MaxPending: 8})
	ctx := context.Background()

	// User 1 is blocked inside the handler; user 2 must still get through.
	if err := d.Submit(ctx, Event{Kind: EventText, UserID: 1, Text: "blocked"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Submit(ctx, Event{Kind: EventText, UserID: 2, Text: "free"}); err != nil {
		t.Fatal(err)
	}

	// Release one handler at a time; both goroutines are waiting on the gate.
	h.gate <- struct{}{}
	h.gate <- struct{}{}
	d.Close()

	if len(h.order(1)) != 1 || len(h.order(2)) != 1 {
		t.Fatalf("users not both handled: %v / %v", h.order(1), h.order(2))
	}
}

func TestDispatcherRejectsOverflow(t *testing.T) {
	h := newRecordingHandler()
	h.gate = make(chan struct{})
	d := NewDispatcher(h, Options{MaxPending: 2})
	ctx := context.Background()

	// First event occupies the drain goroutine, two more fill the queue.
	for i := 0; i < 3; i++ {
		if err := d.Submit(ctx, Event{Kind: EventText, UserID: 1}); err != nil {
			t.Fatalf("event %d rejected early: %v", i, err)
		}
	}
	if err := d.Submit(ctx, Event{Kind: EventText, UserID: 1}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("overflow error = %v, want ErrQueueFull", err)
	}

	// Another user is unaffected by the full queue.
	if err := d.Submit(ctx, Event{Kind: EventText, UserID: 2}); err != nil {
		t.Fatalf("other user rejected: %v", err)
	}

	for i := 0; i < 4; i++ {
		h.gate <- struct{}{}
	}
	d.Close()
}

func TestDispatcherKeepsPerEventContext(t *testing.T) {
	h := newRecordingHandler()
	h.gate = make(chan struct{})
	d := NewDispatcher(h, Options{MaxPending: 8})

	// First event blocks in the handler; the rest queue behind it, each with
	// its own context.
	labels := []string{"r1", "r2", "r3"}
	for _, l := range labels {
		ctx := logger.WithRID(context.Background(), l)
		if err := d.Submit(ctx, Event{Kind: EventText, UserID: 1, Text: l}); err != nil {
			t.Fatalf("Submit(%s): %v", l, err)
		}
	}
	for range labels {
		h.gate <- struct{}{}
	}
	d.Close()

	got := h.ridOrder(1)
	if len(got) != len(labels) {
		t.Fatalf("handled %d events, want %d", len(got), len(labels))
	}
	for i, l := range labels {
		if got[i] != l {
			t.Fatalf("event %d handled with rid %q, want %q (all: %v)", i, got[i], l, got)
		}
	}
}

func TestCloseWaitsForAcceptedEvent(t *testing.T) {
	// Submit and Close race here; whenever Submit wins, the event must be
	// fully handled by the time Close returns.
	for i := 0; i < 500; i++ {
		h := newRecordingHandler()
		d := NewDispatcher(h, Options{})

		res := make(chan error, 1)
		go func() {
			res <- d.Submit(context.Background(), Event{Kind: EventText, UserID: 9, Text: "x"})
		}()
		d.Close()

		if err := <-res; err == nil && len(h.order(9)) != 1 {
			t.Fatalf("iteration %d: accepted event not handled before Close returned", i)
		}
	}
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	h := newRecordingHandler()
	d := NewDispatcher(h, Options{})
	d.Close()

	err := d.Submit(context.Background(), Event{Kind: EventText, UserID: 1})
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Submit after Close = %v, want ErrQueueClosed", err)
	}
}
