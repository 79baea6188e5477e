package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

const dialectPostgres = "postgres"

const bookCols = `id, title, author, isbn, category, location, publisher, cover_url, total, available, created_at, updated_at`

var bookColsList = []any{"id", "title", "author", "isbn", "category", "location", "publisher", "cover_url", "total", "available", "created_at", "updated_at"}

type catalogRepo struct{ q querier }

func scanBook(row pgx.Row) (library.Book, error) {
	var b library.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.Location,
		&b.Publisher, &b.CoverURL, &b.Total, &b.Available, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func bookNotFound(id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return library.Errorf(library.CodeNotFound, "book %s not found", id)
	}
	return err
}

func (r catalogRepo) Get(ctx context.Context, id string) (library.Book, error) {
	b, err := scanBook(r.q.QueryRow(ctx, `SELECT `+bookCols+` FROM books WHERE id=$1`, id))
	return b, bookNotFound(id, err)
}

func (r catalogRepo) Lock(ctx context.Context, id string) (library.Book, error) {
	b, err := scanBook(r.q.QueryRow(ctx, `SELECT `+bookCols+` FROM books WHERE id=$1 FOR UPDATE`, id))
	return b, bookNotFound(id, err)
}

func (r catalogRepo) Search(ctx context.Context, q library.SearchQuery) ([]library.Book, error) {
	sql, args, err := buildSearchQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func buildSearchQuery(q library.SearchQuery) (string, []any, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From("books").
		Select(bookColsList...).
		Order(goqu.I("title").Asc(), goqu.I("id").Asc()).
		Prepared(true)

	if q.Category != "" {
		stmt = stmt.Where(goqu.I("category").Eq(q.Category))
	}
	if q.Text != "" {
		pattern := "%" + escapeLike(q.Text) + "%"
		stmt = stmt.Where(goqu.Or(
			goqu.I("title").ILike(pattern),
			goqu.I("author").ILike(pattern),
			goqu.I("isbn").ILike(pattern),
		))
	}
	return stmt.ToSQL()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (r catalogRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}

// TakeCopy is a single compare-and-decrement, so it is safe with or without
// a surrounding transaction.
func (r catalogRepo) TakeCopy(ctx context.Context, id string, at time.Time) (library.Book, error) {
	b, err := scanBook(r.q.QueryRow(ctx, `
		UPDATE books SET available = available - 1, updated_at = $2
		WHERE id=$1 AND available > 0
		RETURNING `+bookCols, id, at))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return library.Book{}, err
	}
	cur, err := r.Get(ctx, id)
	if err != nil {
		return library.Book{}, err
	}
	return library.Book{}, library.Errorf(library.CodeAvailabilityExhausted, "no copies of %q are available", cur.Title)
}

func (r catalogRepo) PutCopyBack(ctx context.Context, id string, at time.Time) (library.Book, error) {
	b, err := scanBook(r.q.QueryRow(ctx, `
		UPDATE books SET available = LEAST(available + 1, total), updated_at = $2
		WHERE id=$1
		RETURNING `+bookCols, id, at))
	return b, bookNotFound(id, err)
}

func (r catalogRepo) Insert(ctx context.Context, b library.Book) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO books(`+bookCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		b.ID, b.Title, b.Author, b.ISBN, b.Category, b.Location,
		b.Publisher, b.CoverURL, b.Total, b.Available, b.CreatedAt, b.UpdatedAt)
	if isUniqueViolation(err) {
		return library.Errorf(library.CodeConflict, "a book with ISBN %s already exists", b.ISBN)
	}
	return err
}

func (r catalogRepo) Update(ctx context.Context, b library.Book) error {
	ct, err := r.q.Exec(ctx, `
		UPDATE books SET title=$2, author=$3, category=$4, location=$5, publisher=$6,
			cover_url=$7, total=$8, available=$9, updated_at=$10
		WHERE id=$1`,
		b.ID, b.Title, b.Author, b.Category, b.Location, b.Publisher,
		b.CoverURL, b.Total, b.Available, b.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return bookNotFound(b.ID, pgx.ErrNoRows)
	}
	return nil
}

func (r catalogRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.q.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return bookNotFound(id, pgx.ErrNoRows)
	}
	return nil
}
