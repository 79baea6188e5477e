package inbox

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/ariefcatur/go-campus-library/internal/library"
)

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    id          TEXT PRIMARY KEY,
    event_id    TEXT NOT NULL UNIQUE,
    user_id     TEXT NOT NULL,
    type        TEXT NOT NULL,
    title       TEXT NOT NULL,
    message     TEXT NOT NULL,
    read        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);
`

// SQLRepository keeps the inbox in Postgres through database/sql, separate
// from the lending store's pgx pool.
type SQLRepository struct{ db *sqlx.DB }

func Open(ctx context.Context, dsn string) (*SQLRepository, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLRepository{db: db}, nil
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository { return &SQLRepository{db: db} }

func (r *SQLRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *SQLRepository) Close() error { return r.db.Close() }

func (r *SQLRepository) Add(ctx context.Context, e Entry) (bool, error) {
	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, event_id, user_id, type, title, message, read, created_at)
		VALUES (:id, :event_id, :user_id, :type, :title, :message, :read, :created_at)
		ON CONFLICT (event_id) DO NOTHING`, e)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	q := `SELECT id, event_id, user_id, type, title, message, read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	out := []Entry{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepository) MarkRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return library.Errorf(library.CodeNotFound, "notification %s not found", id)
	}
	return nil
}
