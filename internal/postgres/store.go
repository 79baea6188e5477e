package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

const uniqueViolation = "23505"

// querier is the part of pgxpool.Pool and pgx.Tx the repositories need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements library.Store on one Postgres database. Both aggregates
// live in the same schema so a single transaction covers them.
type Store struct{ DB *pgxpool.Pool }

var _ library.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store { return &Store{DB: pool} }

func (s *Store) Catalog() library.CatalogRepository { return catalogRepo{q: s.DB} }
func (s *Store) Loans() library.LoanRepository      { return loanRepo{q: s.DB} }

func (s *Store) InTx(ctx context.Context, fn func(tx library.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(txRepos{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txRepos struct{ q querier }

func (t txRepos) Catalog() library.CatalogRepository { return catalogRepo{q: t.q} }
func (t txRepos) Loans() library.LoanRepository      { return loanRepo{q: t.q} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
