package library

import (
	"context"
	"time"
)

// SearchQuery filters the catalog. Empty fields match everything.
type SearchQuery struct {
	Text     string
	Category string
}

// CatalogRepository owns Book records and their total/available counters.
type CatalogRepository interface {
	Get(ctx context.Context, id string) (Book, error)
	Search(ctx context.Context, q SearchQuery) ([]Book, error)
	Count(ctx context.Context) (int, error)

	// Lock reads a book and holds it against concurrent writers until the
	// surrounding transaction ends.
	Lock(ctx context.Context, id string) (Book, error)

	// TakeCopy atomically checks available > 0 and decrements it, stamping
	// UpdatedAt with at. Fails with ErrAvailabilityExhausted (no mutation) or ErrNotFound.
	TakeCopy(ctx context.Context, id string, at time.Time) (Book, error)

	// PutCopyBack sets available = min(available+1, total) and UpdatedAt = at.
	PutCopyBack(ctx context.Context, id string, at time.Time) (Book, error)

	Insert(ctx context.Context, b Book) error // ErrConflict on duplicate ISBN
	Update(ctx context.Context, b Book) error
	Delete(ctx context.Context, id string) error
}

// LoanRepository owns Loan records. Lookups that precede a write lock the row.
type LoanRepository interface {
	Insert(ctx context.Context, l Loan) error
	Get(ctx context.Context, id string) (Loan, error)
	Lock(ctx context.Context, id string) (Loan, error)
	FindActive(ctx context.Context, bookID, borrowerID string) (Loan, error)
	Update(ctx context.Context, l Loan) error

	ListActiveByBorrower(ctx context.Context, borrowerID string) ([]Loan, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Loan, error)
	CountActiveByBook(ctx context.Context, bookID string) (int, error)
	CountActiveByBorrower(ctx context.Context, borrowerID string) (int, error)
}

// Tx exposes both repositories bound to one transaction.
type Tx interface {
	Catalog() CatalogRepository
	Loans() LoanRepository
}

// Store is the persistence boundary of the Engine. Outside InTx the
// repositories run in autocommit mode.
type Store interface {
	Tx
	// InTx runs fn in one transaction spanning the catalog and the ledger.
	// A non-nil error from fn rolls back every write fn made. InTx must not be nested.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// EventPublisher receives committed lending events. Implementations must not
// block for long; failures are logged by the Engine and never undo a change.
type EventPublisher interface {
	Publish(ctx context.Context, e LoanEvent) error
}

// MetadataLookup resolves bibliographic data for an ISBN.
type MetadataLookup interface {
	Lookup(ctx context.Context, isbn string) (Metadata, error)
}

type Metadata struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	CoverURL  string `json:"coverUrl"`
}
