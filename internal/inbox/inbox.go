// Package inbox stores per-user notification entries produced from lending
// events. Entries are keyed by the event that caused them, so redelivered
// events do not duplicate messages.
package inbox

import (
	"context"
	"time"
)

const TypeLibrary = "library"

type Entry struct {
	ID        string    `json:"id" db:"id"`
	EventID   string    `json:"eventId" db:"event_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Type      string    `json:"type" db:"type"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Repository interface {
	// Add stores e unless an entry for the same event already exists and
	// reports whether it was inserted.
	Add(ctx context.Context, e Entry) (bool, error)
	// ListByUser returns the newest entries first. limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
	// MarkRead fails with NOT_FOUND when id does not belong to userID.
	MarkRead(ctx context.Context, userID, id string) error
}
