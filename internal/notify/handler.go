package notify

import (
	"context"
	"log/slog"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

// Deduper remembers which events were already handled.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Handler consumes envelopes from any transport. A nil error means the
// message may be acknowledged.
type Handler struct {
	Emitter *Emitter
	Dedup   Deduper // optional
	Log     *slog.Logger
}

func (h *Handler) Handle(ctx context.Context, env library.Envelope) error {
	if !library.KnownEvent(env.EventType) {
		return nil
	}
	if h.Dedup != nil {
		first, err := h.Dedup.Claim(ctx, env.EventID)
		if err != nil {
			// the inbox is unique on event id, so carry on without the fast path
			h.Log.Warn("dedup unavailable", "event_id", env.EventID, "err", err)
		} else if !first {
			return nil
		}
	}

	p, err := library.DecodePayload(env)
	if err != nil {
		// poison message, retrying will not help
		h.Log.Error("drop undecodable event", "event_id", env.EventID, "event_type", env.EventType, "err", err)
		return nil
	}
	if err := h.Emitter.Emit(ctx, env.EventID, p.BorrowerID, env.EventType, p); err != nil {
		if h.Dedup != nil {
			_ = h.Dedup.Release(ctx, env.EventID)
		}
		return err
	}
	return nil
}
