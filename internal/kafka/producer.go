package kafka

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

var ErrProducerBusy = errors.New("kafka producer buffer is full")

type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	service string
	log     *slog.Logger
}

func NewProducer(brokers []string, topic, service string, buf int, log *slog.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		service: service,
		log:     log,
	}
}

// Start runs the writer loop. Cancelling ctx flushes what is buffered and
// closes the writer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.flush()
				return
			case m := <-p.inbox:
				p.write(context.Background(), m)
			}
		}
	}()
}

func (p *Producer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		select {
		case m := <-p.inbox:
			p.write(ctx, m)
		default:
			if err := p.w.Close(); err != nil {
				p.log.Warn("kafka writer close", "err", err)
			}
			return
		}
	}
}

func (p *Producer) write(ctx context.Context, m kafka.Message) {
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("kafka write failed", "topic", p.w.Topic, "key", string(m.Key), "err", err)
	}
}

// Enqueue hands a message to the writer loop without waiting for the broker.
func (p *Producer) Enqueue(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrProducerBusy
	}
}

// Publish implements library.EventPublisher on top of the producer.
func (p *Producer) Publish(ctx context.Context, e library.LoanEvent) error {
	env, err := library.NewEnvelope(e, p.service)
	if err != nil {
		return err
	}
	b, err := Marshal(env)
	if err != nil {
		return err
	}
	return p.Enqueue(ctx, library.PartitionKey(e.Loan.BorrowerID), b,
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

// WaitClosed blocks until the writer loop has flushed and exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
