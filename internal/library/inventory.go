package library

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// AddBook puts a new title in circulation with every copy available. Missing
// title or author are filled from the metadata lookup when one is configured.
func (e *Engine) AddBook(ctx context.Context, in NewBook) (b Book, err error) {
	ctx, span := e.startSpan(ctx, "AddBook", attribute.String("book.isbn", in.ISBN))
	defer func() { endSpan(span, err) }()

	in = trimNewBook(in)
	if in.ISBN == "" {
		return Book{}, Errorf(CodeInvalidInput, "isbn is required")
	}
	if (in.Title == "" || in.Author == "") && e.lookup != nil {
		e.autofill(ctx, &in)
	}
	if in.Title == "" || in.Author == "" {
		return Book{}, Errorf(CodeInvalidInput, "title and author are required (or provide a known ISBN for auto-fill)")
	}
	if in.Total < 0 {
		return Book{}, Errorf(CodeInvalidInput, "total must not be negative")
	}
	if in.Total == 0 {
		in.Total = 1
	}

	now := e.clock()
	b = Book{
		ID:        e.newID(),
		Title:     in.Title,
		Author:    in.Author,
		ISBN:      in.ISBN,
		Category:  in.Category,
		Location:  in.Location,
		Publisher: in.Publisher,
		CoverURL:  in.CoverURL,
		Total:     in.Total,
		Available: in.Total,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.Catalog().Insert(ctx, b); err != nil {
		return Book{}, err
	}
	return b, nil
}

func (e *Engine) autofill(ctx context.Context, in *NewBook) {
	md, err := e.lookup.Lookup(ctx, in.ISBN)
	if err != nil {
		e.log.Warn("isbn lookup failed", "isbn", in.ISBN, "err", err)
		return
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&in.Title, md.Title)
	fill(&in.Author, md.Author)
	fill(&in.Publisher, md.Publisher)
	fill(&in.CoverURL, md.CoverURL)
}

// UpdateBook edits metadata and, optionally, the number of owned copies. The
// new availability is total minus the copies on loan, so a total below the
// loaned count is rejected.
func (e *Engine) UpdateBook(ctx context.Context, id string, p BookPatch) (b Book, err error) {
	ctx, span := e.startSpan(ctx, "UpdateBook", attribute.String("book.id", id))
	defer func() { endSpan(span, err) }()

	now := e.clock()
	err = e.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.Catalog().Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := applyPatch(&cur, p); err != nil {
			return err
		}
		if p.Total != nil {
			if *p.Total < 0 {
				return Errorf(CodeInvalidInput, "total must not be negative")
			}
			onLoan, err := tx.Loans().CountActiveByBook(ctx, id)
			if err != nil {
				return err
			}
			if *p.Total < onLoan {
				return Errorf(CodeInvalidState, "total %d is below the %d copies currently on loan", *p.Total, onLoan)
			}
			cur.Total = *p.Total
			cur.Available = cur.Total - onLoan
		}
		cur.UpdatedAt = now
		if err := tx.Catalog().Update(ctx, cur); err != nil {
			return err
		}
		b = cur
		return nil
	})
	return b, err
}

func applyPatch(b *Book, p BookPatch) error {
	set := func(dst *string, v *string, required bool, field string) error {
		if v == nil {
			return nil
		}
		s := strings.TrimSpace(*v)
		if required && s == "" {
			return Errorf(CodeInvalidInput, "%s must not be empty", field)
		}
		*dst = s
		return nil
	}
	return errors.Join(
		set(&b.Title, p.Title, true, "title"),
		set(&b.Author, p.Author, true, "author"),
		set(&b.Category, p.Category, false, "category"),
		set(&b.Location, p.Location, false, "location"),
		set(&b.Publisher, p.Publisher, false, "publisher"),
		set(&b.CoverURL, p.CoverURL, false, "coverUrl"),
	)
}

// RemoveBook deletes a title that has no copy on loan. Returned loans keep
// the denormalised title.
func (e *Engine) RemoveBook(ctx context.Context, id string) (err error) {
	ctx, span := e.startSpan(ctx, "RemoveBook", attribute.String("book.id", id))
	defer func() { endSpan(span, err) }()

	return e.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.Catalog().Lock(ctx, id); err != nil {
			return err
		}
		onLoan, err := tx.Loans().CountActiveByBook(ctx, id)
		if err != nil {
			return err
		}
		if onLoan > 0 {
			return Errorf(CodeInvalidState, "cannot delete book with %d active loans", onLoan)
		}
		return tx.Catalog().Delete(ctx, id)
	})
}

// Seed adds books only when the catalog is empty. Titles whose ISBN already
// exists are skipped.
func (e *Engine) Seed(ctx context.Context, books []NewBook) (int, error) {
	n, err := e.store.Catalog().Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	added := 0
	for _, nb := range books {
		if _, err := e.AddBook(ctx, nb); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}

func trimNewBook(in NewBook) NewBook {
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.TrimSpace(in.Category)
	in.Location = strings.TrimSpace(in.Location)
	in.Publisher = strings.TrimSpace(in.Publisher)
	in.CoverURL = strings.TrimSpace(in.CoverURL)
	return in
}
