package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

var ErrQueueFull = errors.New("notification queue is full")

// Dispatcher is the in-process transport: Publish enqueues without blocking
// and a single worker hands envelopes to the Handler with a few retries.
type Dispatcher struct {
	h        *Handler
	producer string
	log      *slog.Logger
	queue    chan library.Envelope
	closeCh  chan struct{}
	retries  int
	backoff  time.Duration
}

var _ library.EventPublisher = (*Dispatcher)(nil)

func NewDispatcher(h *Handler, producer string, buf int, log *slog.Logger) *Dispatcher {
	if buf <= 0 {
		buf = 256
	}
	return &Dispatcher{
		h:        h,
		producer: producer,
		log:      log,
		queue:    make(chan library.Envelope, buf),
		closeCh:  make(chan struct{}),
		retries:  3,
		backoff:  200 * time.Millisecond,
	}
}

func (d *Dispatcher) Publish(_ context.Context, e library.LoanEvent) error {
	env, err := library.NewEnvelope(e, d.producer)
	if err != nil {
		return err
	}
	select {
	case d.queue <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the worker until ctx is cancelled, then drains what is queued,
// including an envelope that was waiting to be retried.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.closeCh)
		for {
			select {
			case <-ctx.Done():
				d.drain()
				return
			case env := <-d.queue:
				if !d.deliver(ctx, env) {
					d.drain(env)
					return
				}
			}
		}
	}()
}

// drain delivers pending first, then whatever is left in the queue, under a
// fresh deadline.
func (d *Dispatcher) drain(pending ...library.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	finish := func(env library.Envelope) {
		if !d.deliver(ctx, env) {
			d.log.Error("notification dropped at shutdown", "event_id", env.EventID, "event_type", env.EventType)
		}
	}
	for _, env := range pending {
		finish(env)
	}
	for {
		select {
		case env := <-d.queue:
			finish(env)
		default:
			return
		}
	}
}

// deliver hands env to the handler with retries. It reports false when ctx
// ended before env was delivered or given up on.
func (d *Dispatcher) deliver(ctx context.Context, env library.Envelope) bool {
	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(d.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return false
			}
		}
		if err = d.h.Handle(ctx, env); err == nil {
			return true
		}
	}
	d.log.Error("notification dropped", "event_id", env.EventID, "event_type", env.EventType, "err", err)
	return true
}

// WaitClosed blocks until the worker has drained and exited.
func (d *Dispatcher) WaitClosed() { <-d.closeCh }
