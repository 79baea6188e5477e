package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

// BindingAllLoanEvents matches every routing key produced by library.RoutingKey.
const BindingAllLoanEvents = "loan.*"

type Consumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	consumer string
	log      *slog.Logger
}

func NewConsumer(url, exchange, queue, consumer string, prefetch int, log *slog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(q.Name, BindingAllLoanEvents, exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	if prefetch <= 0 {
		prefetch = 8
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fail("set qos", err)
	}
	return &Consumer{conn: conn, ch: ch, queue: q.Name, consumer: consumer, log: log}, nil
}

// Run delivers envelopes to h until ctx ends. Successful deliveries are
// acked, failures are requeued, undecodable bodies are dropped.
func (c *Consumer) Run(ctx context.Context, h func(ctx context.Context, env library.Envelope) error) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, c.consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handle(ctx, d, h)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, h func(ctx context.Context, env library.Envelope) error) {
	var env library.Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		c.log.Error("drop undecodable delivery", "routing_key", d.RoutingKey, "err", err)
		_ = d.Nack(false, false)
		return
	}
	if err := h(ctx, env); err != nil {
		c.log.Warn("handle delivery failed, requeue", "routing_key", d.RoutingKey, "event_id", env.EventID, "err", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
