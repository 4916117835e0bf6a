package workflow

import (
	"context"
	"errors"
	"sync"

	"intakebot/internal/logger"
	"log/slog"
)

var (
	// ErrQueueClosed is returned when submit is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("workflow dispatcher: queue closed")
	// ErrQueueFull indicates the user's pending queue is saturated and the
	// event was not accepted.
	ErrQueueFull = errors.New("workflow dispatcher: queue full")
)

// Handler consumes one event to completion.
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// Options controls the behaviour of the event dispatcher.
type Options struct {
	// MaxPending bounds how many events may wait per user while one is
	// being handled.
	MaxPending int
}

// queuedEvent keeps the event together with the context of the update that
// carried it, so logging metadata stays per-event through the queue.
type queuedEvent struct {
	ctx context.Context
	ev  Event
}

// Dispatcher serializes events per user while letting different users run
// concurrently. The first event for an idle user starts a drain goroutine;
// later events for the same user queue behind it in arrival order. Nothing
// preempts an in-flight gateway call: a Start or Cancel submitted during one
// simply waits its turn.
type Dispatcher struct {
	handler Handler
	opts    Options

	mu      sync.Mutex
	pending map[int64][]queuedEvent
	active  map[int64]bool
	closed  bool
	wg      sync.WaitGroup
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(handler Handler, opts Options) *Dispatcher {
	if opts.MaxPending <= 0 {
		opts.MaxPending = 16
	}
	return &Dispatcher{
		handler: handler,
		opts:    opts,
		pending: make(map[int64][]queuedEvent),
		active:  make(map[int64]bool),
	}
}

// Submit accepts an event for ordered processing. It never blocks on the
// handler; overflow and shutdown are reported to the caller.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrQueueClosed
	}
	if d.active[ev.UserID] {
		q := d.pending[ev.UserID]
		if len(q) >= d.opts.MaxPending {
			d.mu.Unlock()
			logger.Warn(ctx, "wf", "dispatch.overflow",
				slog.String("status", "rate_limited"),
				slog.Int64("user_id", ev.UserID),
				slog.Int("queue_len", len(q)),
			)
			return ErrQueueFull
		}
		d.pending[ev.UserID] = append(q, queuedEvent{ctx: ctx, ev: ev})
		d.mu.Unlock()
		return nil
	}
	d.active[ev.UserID] = true
	// Counted before the lock drops: Close must not observe zero while an
	// accepted event still has no goroutine.
	d.wg.Add(1)
	d.mu.Unlock()

	go d.drain(queuedEvent{ctx: ctx, ev: ev})
	return nil
}

// drain handles the first event and then everything queued behind it, in
// order, until the user's queue is empty.
func (d *Dispatcher) drain(qe queuedEvent) {
	defer d.wg.Done()
	userID := qe.ev.UserID
	for {
		d.handler.Handle(qe.ctx, qe.ev)

		d.mu.Lock()
		q := d.pending[userID]
		if len(q) == 0 {
			delete(d.active, userID)
			delete(d.pending, userID)
			d.mu.Unlock()
			return
		}
		qe = q[0]
		d.pending[userID] = q[1:]
		d.mu.Unlock()
	}
}

// Close stops accepting new events and waits for in-flight queues to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
