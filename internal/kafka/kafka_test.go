package kafka

import (
	"context"
	"io"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

func Test_Producer_PublishEncodesEnvelope(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, library.TopicLoanEvents, "library-api", 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ev := library.LoanEvent{
		ID: "e1", Type: library.EventLoanRenewed, OccurredAt: time.Now(),
		Loan: library.Loan{ID: "l1", BookID: "b1", BookTitle: "Algorithms", BorrowerID: "S1", RenewCount: 1},
	}

	require.NoError(t, p.Publish(context.Background(), ev))

	m := <-p.inbox
	assert.Equal(t, []byte("S1"), m.Key)
	require.Len(t, m.Headers, 2)
	assert.Equal(t, "x-event-type", m.Headers[0].Key)
	assert.Equal(t, library.EventLoanRenewed, string(m.Headers[0].Value))

	env, err := UnmarshalEnvelope(m.Value)
	require.NoError(t, err)
	assert.Equal(t, "e1", env.EventID)
	assert.Equal(t, "library-api", env.Producer)
	p2, err := library.DecodePayload(env)
	require.NoError(t, err)
	assert.Equal(t, 1, p2.RenewCount)
}

func Test_Producer_FullBufferFailsFast(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, library.TopicLoanEvents, "library-api", 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, p.Enqueue(context.Background(), []byte("k"), []byte("v")))
	assert.ErrorIs(t, p.Enqueue(context.Background(), []byte("k"), []byte("v")), ErrProducerBusy)
}

func Test_EnvelopeHandler(t *testing.T) {
	var got []library.Envelope
	h := EnvelopeHandler(func(_ context.Context, env library.Envelope) error {
		got = append(got, env)
		return nil
	})

	require.NoError(t, h(context.Background(), kafka.Message{Value: []byte(`garbage`)}))
	require.NoError(t, h(context.Background(), kafka.Message{Value: []byte(`{"event_id":"e1","event_type":"LoanReturned","payload":{}}`)}))

	require.Len(t, got, 1)
	assert.Equal(t, library.EventLoanReturned, got[0].EventType)
}

type commitLog struct{ offsets map[int][]int64 }

func (c *commitLog) commit(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		c.offsets[m.Partition] = append(c.offsets[m.Partition], m.Offset)
	}
	return nil
}

func Test_OffsetTracker_CommitsOnlyFinishedPrefix(t *testing.T) {
	log := &commitLog{offsets: map[int][]int64{}}
	o := newOffsetTracker(log.commit)
	ctx := context.Background()
	m5 := o.add(kafka.Message{Partition: 0, Offset: 5})
	m6 := o.add(kafka.Message{Partition: 0, Offset: 6})
	m7 := o.add(kafka.Message{Partition: 0, Offset: 7})
	other := o.add(kafka.Message{Partition: 1, Offset: 40})

	// a later offset finishing first must not move the group past offset 5
	require.NoError(t, o.complete(ctx, m6))
	assert.Empty(t, log.offsets[0])

	require.NoError(t, o.complete(ctx, other))
	assert.Equal(t, []int64{40}, log.offsets[1])

	require.NoError(t, o.complete(ctx, m5))
	assert.Equal(t, []int64{6}, log.offsets[0])

	require.NoError(t, o.complete(ctx, m7))
	assert.Equal(t, []int64{6, 7}, log.offsets[0])
}

func Test_OffsetTracker_FailedCommitIsRetried(t *testing.T) {
	fail := true
	var committed []int64
	o := newOffsetTracker(func(_ context.Context, msgs ...kafka.Message) error {
		if fail {
			return errors.New("coordinator unavailable")
		}
		for _, m := range msgs {
			committed = append(committed, m.Offset)
		}
		return nil
	})
	ctx := context.Background()
	m1 := o.add(kafka.Message{Offset: 1})
	m2 := o.add(kafka.Message{Offset: 2})

	assert.Error(t, o.complete(ctx, m1))
	fail = false
	require.NoError(t, o.complete(ctx, m2))

	assert.Equal(t, []int64{2}, committed)
}

func Test_Consumer_ProcessRetriesUntilSuccess(t *testing.T) {
	c := &Consumer{log: slog.New(slog.NewTextHandler(io.Discard, nil)), retryBackoff: time.Millisecond, maxRetryBackoff: 2 * time.Millisecond}
	calls := 0
	h := func(context.Context, kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("inbox unavailable")
		}
		return nil
	}

	ok := c.process(context.Background(), h, kafka.Message{Offset: 5})

	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func Test_Consumer_ProcessStopsOnShutdown(t *testing.T) {
	c := &Consumer{log: slog.New(slog.NewTextHandler(io.Discard, nil)), retryBackoff: time.Hour, maxRetryBackoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := c.process(ctx, func(context.Context, kafka.Message) error { return errors.New("down") }, kafka.Message{})

	assert.False(t, ok)
}
