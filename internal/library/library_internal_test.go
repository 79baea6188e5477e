package library

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DaysRemaining(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		due  time.Time
		want int
	}{
		{now.Add(14 * day), 14},
		{now.Add(36 * time.Hour), 2},
		{now.Add(time.Minute), 1},
		{now, 0},
		{now.Add(-time.Hour), 0},
		{now.Add(-25 * time.Hour), -1},
		{now.Add(-3 * day), -3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysRemaining(tt.due, now), "due %s", tt.due.Sub(now))
	}
}

func Test_NewLoanView_Flags(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	v := NewLoanView(Loan{DueDate: now}, now)
	assert.True(t, v.IsUrgent)
	assert.False(t, v.IsOverdue)

	v = NewLoanView(Loan{DueDate: now.Add(3 * day)}, now)
	assert.False(t, v.IsUrgent)

	v = NewLoanView(Loan{DueDate: now.Add(-25 * time.Hour)}, now)
	assert.True(t, v.IsOverdue)
	assert.False(t, v.IsUrgent)
}

func Test_NewBookView(t *testing.T) {
	assert.Equal(t, AvailabilityAvailable, NewBookView(Book{Available: 1}).AvailabilityStatus)
	assert.Equal(t, AvailabilityUnavailable, NewBookView(Book{Available: 0}).AvailabilityStatus)
}

func Test_CanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusBorrowed, StatusBorrowed))
	assert.True(t, CanTransition(StatusBorrowed, StatusReturned))
	assert.False(t, CanTransition(StatusReturned, StatusBorrowed))
	assert.False(t, CanTransition(StatusReturned, StatusReturned))
	assert.False(t, Status("LOST").Valid())
}

func Test_ErrorCodes(t *testing.T) {
	err := fmt.Errorf("reserve: %w", Errorf(CodeAvailabilityExhausted, "no copies of %q", "x"))

	assert.True(t, errors.Is(err, ErrAvailabilityExhausted))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CodeAvailabilityExhausted, Code(err))
	assert.Equal(t, ErrCode(""), Code(errors.New("plain")))
	assert.Equal(t, "NOT_FOUND", ErrNotFound.Error())
}

func Test_Envelope_RoundTrip(t *testing.T) {
	returned := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	ev := LoanEvent{
		ID:         "e1",
		Type:       EventLoanReturned,
		OccurredAt: returned,
		Loan: Loan{
			ID: "l1", BookID: "b1", BookTitle: "Algorithms", BorrowerID: "S1",
			DueDate: returned.Add(day), Status: StatusReturned, ReturnedAt: &returned,
		},
	}

	env, err := NewEnvelope(ev, "library-api")
	require.NoError(t, err)
	assert.Equal(t, "l1", env.CorrelationID)
	assert.Equal(t, envelopeVersion, env.EventVersion)

	p, err := DecodePayload(env)
	require.NoError(t, err)
	assert.Equal(t, ev.Payload(), p)
}

func Test_RoutingKey(t *testing.T) {
	assert.Equal(t, "loan.reserved", RoutingKey(EventLoanReserved))
	assert.Equal(t, "loan.overdue", RoutingKey(EventLoanOverdue))
	assert.True(t, KnownEvent(EventLoanRenewed))
	assert.False(t, KnownEvent("OrderCreated"))
}

func Test_Policy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr bool
	}{
		{"no renewals", func(p *Policy) { p.MaxRenewals = 0 }, false},
		{"tighter cap", func(p *Policy) { p.MaxRenewals = 1 }, false},
		{"negative renewals", func(p *Policy) { p.MaxRenewals = -1 }, true},
		{"above hard cap", func(p *Policy) { p.MaxRenewals = RenewalCap + 1 }, true},
		{"zero loan period", func(p *Policy) { p.LoanPeriod = 0 }, true},
		{"zero renewal period", func(p *Policy) { p.RenewalPeriod = 0 }, true},
		{"negative borrow limit", func(p *Policy) { p.MaxActiveLoans = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			if tt.wantErr {
				assert.Error(t, p.Validate())
			} else {
				assert.NoError(t, p.Validate())
			}
		})
	}
}
