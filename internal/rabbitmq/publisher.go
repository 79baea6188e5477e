// Package rabbitmq carries lending events over a RabbitMQ topic exchange as
// an alternative to Kafka.
package rabbitmq

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const exchangeKind = "topic"

type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	service  string
}

var _ library.EventPublisher = (*Publisher)(nil)

func NewPublisher(url, exchange, service string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange, service: service}, nil
}

func (p *Publisher) Publish(ctx context.Context, e library.LoanEvent) error {
	env, err := library.NewEnvelope(e, p.service)
	if err != nil {
		return err
	}
	msg, err := publishing(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.ch.PublishWithContext(ctx, p.exchange, library.RoutingKey(env.EventType), false, false, msg)
}

func publishing(env library.Envelope) (amqp.Publishing, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.EventID,
		CorrelationId: env.CorrelationID,
		Timestamp:     env.OccurredAt,
		Type:          env.EventType,
		Headers:       amqp.Table{"x-event-version": strconv.Itoa(env.EventVersion)},
		Body:          b,
	}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
