package rabbitmq

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

func Test_Publishing(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	env, err := library.NewEnvelope(library.LoanEvent{
		ID: "e1", Type: library.EventLoanReserved, OccurredAt: at,
		Loan: library.Loan{ID: "l1", BookTitle: "Algorithms", BorrowerID: "S1"},
	}, "library-api")
	require.NoError(t, err)

	msg, err := publishing(env)

	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "e1", msg.MessageId)
	assert.Equal(t, "l1", msg.CorrelationId)
	assert.Equal(t, library.EventLoanReserved, msg.Type)
	assert.Equal(t, at, msg.Timestamp)

	var back library.Envelope
	require.NoError(t, json.Unmarshal(msg.Body, &back))
	assert.Equal(t, env.EventID, back.EventID)
	assert.JSONEq(t, string(env.Payload), string(back.Payload))
}

func Test_RoutingKeys_MatchBinding(t *testing.T) {
	for _, typ := range []string{library.EventLoanReserved, library.EventLoanRenewed, library.EventLoanReturned, library.EventLoanOverdue} {
		key := library.RoutingKey(typ)
		assert.Regexp(t, `^loan\.[a-z]+$`, key)
	}
}
