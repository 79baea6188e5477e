// Package memstore keeps the catalog and the loan ledger in process memory,
// optionally mirrored to a JSON file. Transactions work on a private copy of
// the state that replaces the shared one on commit.
package memstore

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

type state struct {
	Books map[string]library.Book `json:"books"`
	Loans map[string]library.Loan `json:"loans"`
}

func newState() *state {
	return &state{
		Books: map[string]library.Book{},
		Loans: map[string]library.Loan{},
	}
}

func (s *state) clone() *state {
	c := &state{
		Books: make(map[string]library.Book, len(s.Books)),
		Loans: make(map[string]library.Loan, len(s.Loans)),
	}
	for k, v := range s.Books {
		c.Books[k] = v
	}
	for k, v := range s.Loans {
		c.Loans[k] = v
	}
	return c
}

// Store serialises all transactions behind one mutex, which gives the same
// guarantees as row locks for a single process.
type Store struct {
	mu   sync.Mutex
	st   *state
	path string
}

var _ library.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(tx library.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(fn)
}

// commitLocked runs fn on a copy and swaps it in once fn succeeds and the
// copy is persisted. Caller holds mu.
func (s *Store) commitLocked(fn func(tx library.Tx) error) error {
	work := s.st.clone()
	if err := fn(txView{run: direct(work)}); err != nil {
		return err
	}
	if err := s.persist(work); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Catalog() library.CatalogRepository { return catalogRepo{run: s.autocommit} }

func (s *Store) Loans() library.LoanRepository { return loanRepo{run: s.autocommit} }

// runner gives a repository access to a state. write marks calls that
// mutate it.
type runner func(write bool, fn func(st *state) error) error

func direct(st *state) runner {
	return func(_ bool, fn func(st *state) error) error { return fn(st) }
}

func (s *Store) autocommit(write bool, fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !write {
		return fn(s.st)
	}
	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	if err := s.persist(work); err != nil {
		return err
	}
	s.st = work
	return nil
}

type txView struct {
	run runner
}

func (t txView) Catalog() library.CatalogRepository { return catalogRepo{run: t.run} }
func (t txView) Loans() library.LoanRepository      { return loanRepo{run: t.run} }
