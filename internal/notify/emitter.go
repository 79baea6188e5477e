// Package notify turns committed lending events into inbox entries. It runs
// behind a queue, so a failure here never reaches the lending operation.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-campus-library/internal/inbox"
	"github.com/ariefcatur/go-campus-library/internal/library"
)

type Emitter struct {
	Repo inbox.Repository
	Log  *slog.Logger
	Now  func() time.Time
}

func NewEmitter(repo inbox.Repository, log *slog.Logger) *Emitter {
	return &Emitter{Repo: repo, Log: log, Now: time.Now}
}

// Emit appends an unread library entry for userID. Repeating the same
// eventID leaves a single entry.
func (e *Emitter) Emit(ctx context.Context, eventID, userID, kind string, p library.LoanEventPayload) error {
	title, msg, ok := Render(kind, p)
	if !ok {
		return nil
	}
	added, err := e.Repo.Add(ctx, inbox.Entry{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		Type:      inbox.TypeLibrary,
		Title:     title,
		Message:   msg,
		CreatedAt: e.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if !added {
		e.Log.Debug("notification already delivered", "event_id", eventID, "user_id", userID)
	}
	return nil
}
