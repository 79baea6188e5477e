package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

const loanCols = `id, book_id, book_title, borrower_id, borrowed_at, due_date, status, renew_count, last_renewed_at, returned_at`

type loanRepo struct{ q querier }

func scanLoan(row pgx.Row) (library.Loan, error) {
	var (
		l      library.Loan
		status string
	)
	err := row.Scan(&l.ID, &l.BookID, &l.BookTitle, &l.BorrowerID, &l.BorrowedAt, &l.DueDate,
		&status, &l.RenewCount, &l.LastRenewedAt, &l.ReturnedAt)
	l.Status = library.Status(status)
	return l, err
}

func (r loanRepo) Insert(ctx context.Context, l library.Loan) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO loans(`+loanCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		l.ID, l.BookID, l.BookTitle, l.BorrowerID, l.BorrowedAt, l.DueDate,
		string(l.Status), l.RenewCount, l.LastRenewedAt, l.ReturnedAt)
	if isUniqueViolation(err) {
		return library.Errorf(library.CodeConflict, "loan %s already exists", l.ID)
	}
	return err
}

func (r loanRepo) Get(ctx context.Context, id string) (library.Loan, error) {
	l, err := scanLoan(r.q.QueryRow(ctx, `SELECT `+loanCols+` FROM loans WHERE id=$1`, id))
	return l, loanNotFound(id, err)
}

func (r loanRepo) Lock(ctx context.Context, id string) (library.Loan, error) {
	l, err := scanLoan(r.q.QueryRow(ctx, `SELECT `+loanCols+` FROM loans WHERE id=$1 FOR UPDATE`, id))
	return l, loanNotFound(id, err)
}

func loanNotFound(id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return library.Errorf(library.CodeNotFound, "loan %s not found", id)
	}
	return err
}

func (r loanRepo) FindActive(ctx context.Context, bookID, borrowerID string) (library.Loan, error) {
	l, err := scanLoan(r.q.QueryRow(ctx, `
		SELECT `+loanCols+` FROM loans
		WHERE book_id=$1 AND borrower_id=$2 AND status='BORROWED'
		ORDER BY borrowed_at
		LIMIT 1
		FOR UPDATE`, bookID, borrowerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return l, library.Errorf(library.CodeNotFound, "no active loan of book %s for borrower %s", bookID, borrowerID)
	}
	return l, err
}

func (r loanRepo) Update(ctx context.Context, l library.Loan) error {
	ct, err := r.q.Exec(ctx, `
		UPDATE loans SET due_date=$2, status=$3, renew_count=$4, last_renewed_at=$5, returned_at=$6
		WHERE id=$1`,
		l.ID, l.DueDate, string(l.Status), l.RenewCount, l.LastRenewedAt, l.ReturnedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return loanNotFound(l.ID, pgx.ErrNoRows)
	}
	return nil
}

func (r loanRepo) ListActiveByBorrower(ctx context.Context, borrowerID string) ([]library.Loan, error) {
	return r.list(ctx, `
		SELECT `+loanCols+` FROM loans
		WHERE borrower_id=$1 AND status='BORROWED'
		ORDER BY borrowed_at DESC`, borrowerID)
}

func (r loanRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]library.Loan, error) {
	return r.list(ctx, `
		SELECT `+loanCols+` FROM loans
		WHERE status='BORROWED' AND due_date < $1
		ORDER BY due_date`, asOf)
}

func (r loanRepo) CountActiveByBook(ctx context.Context, bookID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM loans WHERE book_id=$1 AND status='BORROWED'`, bookID).Scan(&n)
	return n, err
}

// CountActiveByBorrower takes a transaction-scoped advisory lock on the
// borrower first, so two reservations by the same borrower serialise on the count.
func (r loanRepo) CountActiveByBorrower(ctx context.Context, borrowerID string) (int, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "borrower:"+borrowerID); err != nil {
		return 0, err
	}
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM loans WHERE borrower_id=$1 AND status='BORROWED'`, borrowerID).Scan(&n)
	return n, err
}

func (r loanRepo) list(ctx context.Context, sql string, args ...any) ([]library.Loan, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
