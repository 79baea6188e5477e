package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-campus-library/internal/inbox"
	"github.com/ariefcatur/go-campus-library/internal/library"
)

const defaultInboxLimit = 50

type InboxHandler struct {
	Repo inbox.Repository
	Log  *slog.Logger
}

func (h *InboxHandler) Register(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Post("/notifications/{id}/read", h.markRead)
}

func (h *InboxHandler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	limit := defaultInboxLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, r, h.Log, library.Errorf(library.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	ctx, cancel := timeout(r, 3*time.Second)
	defer cancel()

	entries, err := h.Repo.ListByUser(ctx, p.ID, limit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if entries == nil {
		entries = []inbox.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *InboxHandler) markRead(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	ctx, cancel := timeout(r, 3*time.Second)
	defer cancel()

	if err := h.Repo.MarkRead(ctx, p.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
