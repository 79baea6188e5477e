package memstore

import (
	"context"
	"time"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

type loanRepo struct {
	run runner
}

func (r loanRepo) Insert(_ context.Context, l library.Loan) error {
	return r.run(true, func(st *state) error {
		if _, ok := st.Loans[l.ID]; ok {
			return library.Errorf(library.CodeConflict, "loan %s already exists", l.ID)
		}
		st.Loans[l.ID] = l
		return nil
	})
}

func (r loanRepo) Get(_ context.Context, id string) (l library.Loan, err error) {
	err = r.run(false, func(st *state) error {
		var ok bool
		if l, ok = st.Loans[id]; !ok {
			return library.Errorf(library.CodeNotFound, "loan %s not found", id)
		}
		return nil
	})
	return l, err
}

func (r loanRepo) Lock(ctx context.Context, id string) (library.Loan, error) {
	return r.Get(ctx, id)
}

// FindActive returns the oldest BORROWED loan of bookID held by borrowerID.
func (r loanRepo) FindActive(_ context.Context, bookID, borrowerID string) (l library.Loan, err error) {
	err = r.run(false, func(st *state) error {
		found := false
		for _, cur := range st.Loans {
			if cur.BookID != bookID || cur.BorrowerID != borrowerID || !cur.Active() {
				continue
			}
			if !found || cur.BorrowedAt.Before(l.BorrowedAt) {
				l, found = cur, true
			}
		}
		if !found {
			return library.Errorf(library.CodeNotFound, "no active loan of book %s for borrower %s", bookID, borrowerID)
		}
		return nil
	})
	return l, err
}

func (r loanRepo) Update(_ context.Context, l library.Loan) error {
	return r.run(true, func(st *state) error {
		if _, ok := st.Loans[l.ID]; !ok {
			return library.Errorf(library.CodeNotFound, "loan %s not found", l.ID)
		}
		st.Loans[l.ID] = l
		return nil
	})
}

func (r loanRepo) ListActiveByBorrower(_ context.Context, borrowerID string) ([]library.Loan, error) {
	return r.filter(func(l library.Loan) bool { return l.Active() && l.BorrowerID == borrowerID })
}

func (r loanRepo) ListOverdue(_ context.Context, asOf time.Time) ([]library.Loan, error) {
	return r.filter(func(l library.Loan) bool { return l.Active() && l.DueDate.Before(asOf) })
}

func (r loanRepo) CountActiveByBook(_ context.Context, bookID string) (int, error) {
	out, err := r.filter(func(l library.Loan) bool { return l.Active() && l.BookID == bookID })
	return len(out), err
}

func (r loanRepo) CountActiveByBorrower(_ context.Context, borrowerID string) (int, error) {
	out, err := r.filter(func(l library.Loan) bool { return l.Active() && l.BorrowerID == borrowerID })
	return len(out), err
}

func (r loanRepo) filter(keep func(library.Loan) bool) (out []library.Loan, err error) {
	err = r.run(false, func(st *state) error {
		for _, l := range st.Loans {
			if keep(l) {
				out = append(out, l)
			}
		}
		return nil
	})
	return out, err
}
