package library

import (
	"encoding/json"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	EventLoanReserved = "LoanReserved"
	EventLoanRenewed  = "LoanRenewed"
	EventLoanReturned = "LoanReturned"
	EventLoanOverdue  = "LoanOverdue"
)

const envelopeVersion = 1

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // loan id
	Payload       json.RawMessage `json:"payload"`
}

// LoanEvent is published by the Engine after a change has been committed.
type LoanEvent struct {
	ID          string
	Type        string
	OccurredAt  time.Time
	Loan        Loan
	Location    string
	DaysOverdue int
	TraceID     string
}

type LoanEventPayload struct {
	LoanID      string     `json:"loan_id"`
	BookID      string     `json:"book_id"`
	BookTitle   string     `json:"book_title"`
	BorrowerID  string     `json:"borrower_id"`
	Location    string     `json:"location,omitempty"`
	DueDate     time.Time  `json:"due_date"`
	RenewCount  int        `json:"renew_count"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
	DaysOverdue int        `json:"days_overdue,omitempty"`
}

func (e LoanEvent) Payload() LoanEventPayload {
	return LoanEventPayload{
		LoanID:      e.Loan.ID,
		BookID:      e.Loan.BookID,
		BookTitle:   e.Loan.BookTitle,
		BorrowerID:  e.Loan.BorrowerID,
		Location:    e.Location,
		DueDate:     e.Loan.DueDate,
		RenewCount:  e.Loan.RenewCount,
		ReturnedAt:  e.Loan.ReturnedAt,
		DaysOverdue: e.DaysOverdue,
	}
}

func NewEnvelope(e LoanEvent, producer string) (Envelope, error) {
	payload, err := codec.Marshal(e.Payload())
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", e.Type, err)
	}
	return Envelope{
		EventID:       e.ID,
		EventType:     e.Type,
		EventVersion:  envelopeVersion,
		OccurredAt:    e.OccurredAt.UTC(),
		Producer:      producer,
		TraceID:       e.TraceID,
		CorrelationID: e.Loan.ID,
		Payload:       payload,
	}, nil
}

func DecodePayload(env Envelope) (LoanEventPayload, error) {
	var p LoanEventPayload
	if err := codec.Unmarshal(env.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return p, nil
}

func KnownEvent(eventType string) bool {
	switch eventType {
	case EventLoanReserved, EventLoanRenewed, EventLoanReturned, EventLoanOverdue:
		return true
	}
	return false
}
