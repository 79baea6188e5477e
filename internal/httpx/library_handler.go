package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-campus-library/internal/library"
	"github.com/ariefcatur/go-campus-library/internal/redisx"
)

const headerIdempotencyKey = "Idempotency-Key"

// Idempotency stores reserve responses per borrower and client key.
type Idempotency interface {
	Begin(ctx context.Context, borrowerID, key string) ([]byte, bool, error)
	Complete(ctx context.Context, borrowerID, key string, resp []byte) error
	Abort(ctx context.Context, borrowerID, key string) error
}

type LibraryHandler struct {
	Engine  *library.Engine
	Catalog *library.Catalog
	Lookup  library.MetadataLookup // optional
	Idem    Idempotency            // optional
	Log     *slog.Logger
}

type borrowerReq struct {
	BorrowerID string `json:"borrowerId" validate:"omitempty,max=128"`
}

type addBookReq struct {
	ISBN      string `json:"isbn" validate:"required,max=32"`
	Title     string `json:"title" validate:"max=512"`
	Author    string `json:"author" validate:"max=512"`
	Category  string `json:"category" validate:"max=128"`
	Location  string `json:"location" validate:"max=128"`
	Publisher string `json:"publisher" validate:"max=256"`
	CoverURL  string `json:"coverUrl" validate:"omitempty,url"`
	Total     int    `json:"total" validate:"gte=0"`
}

type updateBookReq struct {
	Title     *string `json:"title" validate:"omitempty,max=512"`
	Author    *string `json:"author" validate:"omitempty,max=512"`
	Category  *string `json:"category" validate:"omitempty,max=128"`
	Location  *string `json:"location" validate:"omitempty,max=128"`
	Publisher *string `json:"publisher" validate:"omitempty,max=256"`
	CoverURL  *string `json:"coverUrl"`
	Total     *int    `json:"total" validate:"omitempty,gte=0"`
}

type remindResp struct {
	Sent int `json:"sent"`
}

// Register mounts the lending routes. Callers wrap r with Authenticate.
func (h *LibraryHandler) Register(r chi.Router) {
	r.Route("/library", func(r chi.Router) {
		r.Get("/books", h.searchBooks)
		r.Get("/books/{id}", h.getBook)
		r.Post("/books/{id}/reserve", h.reserve)
		r.Post("/books/{id}/return", h.returnBook)
		r.Post("/loans/{id}/renew", h.renew)
		r.Get("/my-loans", h.myLoans)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Post("/books", h.addBook)
			r.Patch("/books/{id}", h.updateBook)
			r.Delete("/books/{id}", h.deleteBook)
			r.Get("/isbn/{isbn}", h.lookupISBN)
			r.Get("/overdue", h.overdue)
			r.Post("/overdue/remind", h.remindOverdue)
		})
	})
}

func timeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// borrowerFor picks whose loans a request acts on. Only admins may act for
// someone else.
func borrowerFor(p Principal, requested string, allowed ...string) (string, error) {
	if requested == "" || requested == p.ID {
		return p.ID, nil
	}
	if p.Role == RoleAdmin {
		return requested, nil
	}
	for _, role := range allowed {
		if p.Role == role {
			return requested, nil
		}
	}
	return "", library.Errorf(library.CodeNotFound, "borrower %s not found", requested)
}

func (h *LibraryHandler) searchBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r, 3*time.Second)
	defer cancel()

	q := r.URL.Query()
	books, err := h.Catalog.Search(ctx, q.Get("search"), q.Get("category"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *LibraryHandler) getBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r, 3*time.Second)
	defer cancel()

	b, err := h.Catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *LibraryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req borrowerReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	borrower, err := borrowerFor(p, req.BorrowerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeout(r, 5*time.Second)
	defer cancel()

	bookID := chi.URLParam(r, "id")
	key := r.Header.Get(headerIdempotencyKey)
	useIdem := key != "" && h.Idem != nil
	if useIdem {
		cached, found, err := h.Idem.Begin(ctx, borrower, key)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: string(library.CodeConflict)})
			return
		case err != nil:
			// the database stays authoritative; carry on without replay protection
			h.Log.Warn("idempotency store unavailable", "err", err)
			useIdem = false
		case found:
			var prev library.Loan
			if err := json.Unmarshal(cached, &prev); err == nil && prev.BookID != bookID {
				writeJSON(w, http.StatusConflict, errorBody{Error: "idempotency key was already used for another book", Code: string(library.CodeConflict)})
				return
			}
			w.Header().Set("Idempotent-Replayed", "true")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(cached)
			return
		}
	}

	loan, err := h.Engine.Reserve(ctx, bookID, borrower)
	if err != nil {
		if useIdem {
			_ = h.Idem.Abort(ctx, borrower, key)
		}
		writeError(w, r, h.Log, err)
		return
	}
	if useIdem {
		if body, err := json.Marshal(loan); err == nil {
			if err := h.Idem.Complete(ctx, borrower, key, body); err != nil {
				h.Log.Warn("idempotency store write failed", "loan_id", loan.ID, "err", err)
			}
		}
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *LibraryHandler) returnBook(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req borrowerReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	borrower, err := borrowerFor(p, req.BorrowerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeout(r, 5*time.Second)
	defer cancel()

	rec, err := h.Engine.Return(ctx, chi.URLParam(r, "id"), borrower)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *LibraryHandler) renew(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	owner := p.ID
	if p.Role == RoleAdmin {
		owner = ""
	}

	ctx, cancel := timeout(r, 5*time.Second)
	defer cancel()

	res, err := h.Engine.Renew(ctx, chi.URLParam(r, "id"), owner)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *LibraryHandler) myLoans(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	borrower, err := borrowerFor(p, r.URL.Query().Get("borrower_id"), RoleFaculty)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeout(r, 3*time.Second)
	defer cancel()

	loans, err := h.Engine.MyLoans(ctx, borrower)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *LibraryHandler) addBook(w http.ResponseWriter, r *http.Request) {
	var req addBookReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeout(r, 15*time.Second) // may call Open Library
	defer cancel()

	b, err := h.Engine.AddBook(ctx, library.NewBook{
		ISBN:      req.ISBN,
		Title:     req.Title,
		Author:    req.Author,
		Category:  req.Category,
		Location:  req.Location,
		Publisher: req.Publisher,
		CoverURL:  req.CoverURL,
		Total:     req.Total,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, library.NewBookView(b))
}

func (h *LibraryHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	var req updateBookReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeout(r, 5*time.Second)
	defer cancel()

	b, err := h.Engine.UpdateBook(ctx, chi.URLParam(r, "id"), library.BookPatch{
		Title:     req.Title,
		Author:    req.Author,
		Category:  req.Category,
		Location:  req.Location,
		Publisher: req.Publisher,
		CoverURL:  req.CoverURL,
		Total:     req.Total,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, library.NewBookView(b))
}

func (h *LibraryHandler) deleteBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r, 5*time.Second)
	defer cancel()

	if err := h.Engine.RemoveBook(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LibraryHandler) lookupISBN(w http.ResponseWriter, r *http.Request) {
	if h.Lookup == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "isbn lookup is not configured", Code: "UNAVAILABLE"})
		return
	}
	ctx, cancel := timeout(r, 12*time.Second)
	defer cancel()

	md, err := h.Lookup.Lookup(ctx, chi.URLParam(r, "isbn"))
	if err != nil {
		if library.Code(err) == "" {
			h.Log.Warn("isbn lookup failed", "err", err)
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "failed to lookup ISBN", Code: "UPSTREAM"})
			return
		}
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (h *LibraryHandler) overdue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r, 5*time.Second)
	defer cancel()

	loans, err := h.Engine.Overdue(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *LibraryHandler) remindOverdue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r, 10*time.Second)
	defer cancel()

	n, err := h.Engine.RemindOverdue(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, remindResp{Sent: n})
}
