package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

// Handler returns nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *slog.Logger

	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:               r,
		workers:         workers,
		log:             log,
		retryBackoff:    200 * time.Millisecond,
		maxRetryBackoff: 5 * time.Second,
	}
}

// EnvelopeHandler adapts an envelope handler to raw Kafka messages.
func EnvelopeHandler(h func(ctx context.Context, env library.Envelope) error) Handler {
	return func(ctx context.Context, m kafka.Message) error {
		env, err := UnmarshalEnvelope(m.Value)
		if err != nil {
			// poison message: commit and move on
			return nil
		}
		return h(ctx, env)
	}
}

// Start fetches until ctx ends. A failed message is retried in its worker
// until it succeeds, and offsets are committed per partition only up to the
// oldest message still in flight, so a failure is never skipped by a later commit.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	offsets := newOffsetTracker(c.r.CommitMessages)
	jobs := make(chan *tracked, 1024)
	var wg sync.WaitGroup

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for t := range jobs {
				if !c.process(ctx, h, t.m) {
					continue // shutting down; left uncommitted for redelivery
				}
				if err := offsets.complete(ctx, t); err != nil {
					c.log.Warn("kafka commit failed", "worker", id, "partition", t.m.Partition, "offset", t.m.Offset, "err", err)
				}
			}
		}(i)
	}
	stop := func() {
		close(jobs)
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		t := offsets.add(m)
		select {
		case jobs <- t:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// process runs h with growing backoff until it succeeds. It reports false
// when ctx ends first.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) bool {
	backoff := c.retryBackoff
	for {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		c.log.Warn("kafka handler error, retrying", "partition", m.Partition, "offset", m.Offset, "backoff", backoff, "err", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
		if backoff *= 2; backoff > c.maxRetryBackoff {
			backoff = c.maxRetryBackoff
		}
	}
}
