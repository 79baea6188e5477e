package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

type catalogRepo struct {
	run runner
}

func bookNotFound(id string) error {
	return library.Errorf(library.CodeNotFound, "book %s not found", id)
}

func (r catalogRepo) Get(_ context.Context, id string) (b library.Book, err error) {
	err = r.run(false, func(st *state) error {
		var ok bool
		if b, ok = st.Books[id]; !ok {
			return bookNotFound(id)
		}
		return nil
	})
	return b, err
}

func (r catalogRepo) Search(_ context.Context, q library.SearchQuery) (out []library.Book, err error) {
	err = r.run(false, func(st *state) error {
		for _, b := range st.Books {
			if q.Matches(b) {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r catalogRepo) Count(_ context.Context) (n int, err error) {
	err = r.run(false, func(st *state) error {
		n = len(st.Books)
		return nil
	})
	return n, err
}

func (r catalogRepo) Lock(ctx context.Context, id string) (library.Book, error) {
	return r.Get(ctx, id)
}

func (r catalogRepo) TakeCopy(_ context.Context, id string, at time.Time) (b library.Book, err error) {
	err = r.run(true, func(st *state) error {
		cur, ok := st.Books[id]
		if !ok {
			return bookNotFound(id)
		}
		if cur.Available <= 0 {
			return library.Errorf(library.CodeAvailabilityExhausted, "no copies of %q are available", cur.Title)
		}
		cur.Available--
		cur.UpdatedAt = at
		st.Books[id] = cur
		b = cur
		return nil
	})
	return b, err
}

func (r catalogRepo) PutCopyBack(_ context.Context, id string, at time.Time) (b library.Book, err error) {
	err = r.run(true, func(st *state) error {
		cur, ok := st.Books[id]
		if !ok {
			return bookNotFound(id)
		}
		cur.Available = min(cur.Available+1, cur.Total)
		cur.UpdatedAt = at
		st.Books[id] = cur
		b = cur
		return nil
	})
	return b, err
}

func (r catalogRepo) Insert(_ context.Context, b library.Book) error {
	return r.run(true, func(st *state) error {
		if _, ok := st.Books[b.ID]; ok {
			return library.Errorf(library.CodeConflict, "book %s already exists", b.ID)
		}
		for _, cur := range st.Books {
			if cur.ISBN == b.ISBN {
				return library.Errorf(library.CodeConflict, "a book with ISBN %s already exists", b.ISBN)
			}
		}
		st.Books[b.ID] = b
		return nil
	})
}

func (r catalogRepo) Update(_ context.Context, b library.Book) error {
	return r.run(true, func(st *state) error {
		if _, ok := st.Books[b.ID]; !ok {
			return bookNotFound(b.ID)
		}
		st.Books[b.ID] = b
		return nil
	})
}

func (r catalogRepo) Delete(_ context.Context, id string) error {
	return r.run(true, func(st *state) error {
		if _, ok := st.Books[id]; !ok {
			return bookNotFound(id)
		}
		delete(st.Books, id)
		return nil
	})
}
