package library

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ariefcatur/go-campus-library/internal/library"

// Engine is the only writer of the catalog and the loan ledger. Every
// operation touching both runs inside one Store transaction; events are
// published after commit and never influence the result.
type Engine struct {
	store  Store
	events EventPublisher
	lookup MetadataLookup
	policy Policy
	now    func() time.Time
	newID  func() string
	log    *slog.Logger
	tracer trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

func WithPolicy(p Policy) Option { return func(e *Engine) { e.policy = p } }

func WithPublisher(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

func WithMetadataLookup(l MetadataLookup) Option { return func(e *Engine) { e.lookup = l } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

func NewEngine(store Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:  store,
		policy: DefaultPolicy(),
		now:    time.Now,
		newID:  uuid.NewString,
		log:    slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.policy.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Policy() Policy { return e.policy }

// Reserve lends one copy of bookID to borrowerID. The availability check and
// decrement happen under the book's row lock together with the loan insert.
func (e *Engine) Reserve(ctx context.Context, bookID, borrowerID string) (loan Loan, err error) {
	ctx, span := e.startSpan(ctx, "Reserve", attribute.String("book.id", bookID), attribute.String("borrower.id", borrowerID))
	defer func() { endSpan(span, err) }()

	if bookID == "" || borrowerID == "" {
		return Loan{}, Errorf(CodeInvalidInput, "bookId and borrowerId are required")
	}

	now := e.clock()
	var location string
	err = e.store.InTx(ctx, func(tx Tx) error {
		if e.policy.MaxActiveLoans > 0 {
			n, err := tx.Loans().CountActiveByBorrower(ctx, borrowerID)
			if err != nil {
				return err
			}
			if n >= e.policy.MaxActiveLoans {
				return Errorf(CodeBorrowLimitReached, "borrow limit (%d) reached", e.policy.MaxActiveLoans)
			}
		}

		book, err := tx.Catalog().TakeCopy(ctx, bookID, now)
		if err != nil {
			return err
		}
		location = book.Location

		loan = Loan{
			ID:         e.newID(),
			BookID:     book.ID,
			BookTitle:  book.Title,
			BorrowerID: borrowerID,
			BorrowedAt: now,
			DueDate:    now.Add(e.policy.LoanPeriod),
			Status:     StatusBorrowed,
		}
		return tx.Loans().Insert(ctx, loan)
	})
	if err != nil {
		return Loan{}, err
	}

	e.publish(ctx, EventLoanReserved, loan, location, 0)
	return loan, nil
}

// Renew extends an active loan from its current due date. A non-empty
// borrowerID restricts the call to the loan's owner; other callers see NOT_FOUND.
func (e *Engine) Renew(ctx context.Context, loanID, borrowerID string) (res RenewResult, err error) {
	ctx, span := e.startSpan(ctx, "Renew", attribute.String("loan.id", loanID))
	defer func() { endSpan(span, err) }()

	if loanID == "" {
		return RenewResult{}, Errorf(CodeInvalidInput, "loanId is required")
	}

	now := e.clock()
	var loan Loan
	err = e.store.InTx(ctx, func(tx Tx) error {
		l, err := tx.Loans().Lock(ctx, loanID)
		if err != nil {
			return err
		}
		if borrowerID != "" && l.BorrowerID != borrowerID {
			return Errorf(CodeNotFound, "loan %s not found", loanID)
		}
		if !CanTransition(l.Status, StatusBorrowed) {
			return Errorf(CodeInvalidState, "loan %s is already returned", loanID)
		}
		if l.RenewCount >= e.policy.MaxRenewals {
			return Errorf(CodeRenewalLimitExceeded, "maximum renewal limit (%d) reached", e.policy.MaxRenewals)
		}
		if !e.policy.AllowRenewalWhenOverdue && NewLoanView(l, now).IsOverdue {
			return Errorf(CodeInvalidState, "loan %s is overdue and cannot be renewed", loanID)
		}

		l.DueDate = l.DueDate.Add(e.policy.RenewalPeriod)
		l.RenewCount++
		l.LastRenewedAt = &now
		if err := tx.Loans().Update(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return RenewResult{}, err
	}

	e.publish(ctx, EventLoanRenewed, loan, "", 0)
	return RenewResult{LoanID: loan.ID, NewDueDate: loan.DueDate, RenewCount: loan.RenewCount}, nil
}

// Return closes the borrower's active loan of bookID and puts the copy back.
// Returning twice yields NOT_FOUND the second time and changes nothing.
func (e *Engine) Return(ctx context.Context, bookID, borrowerID string) (rec ReturnReceipt, err error) {
	ctx, span := e.startSpan(ctx, "Return", attribute.String("book.id", bookID), attribute.String("borrower.id", borrowerID))
	defer func() { endSpan(span, err) }()

	if bookID == "" || borrowerID == "" {
		return ReturnReceipt{}, Errorf(CodeInvalidInput, "bookId and borrowerId are required")
	}

	now := e.clock()
	var loan Loan
	err = e.store.InTx(ctx, func(tx Tx) error {
		// book first, then loan: same order as Reserve
		if _, err := tx.Catalog().Lock(ctx, bookID); err != nil {
			return err
		}
		l, err := tx.Loans().FindActive(ctx, bookID, borrowerID)
		if err != nil {
			return err
		}
		if !CanTransition(l.Status, StatusReturned) {
			return Errorf(CodeInvalidState, "loan %s is already returned", l.ID)
		}

		l.Status = StatusReturned
		l.ReturnedAt = &now
		if err := tx.Loans().Update(ctx, l); err != nil {
			return err
		}

		book, err := tx.Catalog().PutCopyBack(ctx, bookID, now)
		if err != nil {
			return err
		}
		loan = l
		rec = ReturnReceipt{
			LoanID:     l.ID,
			BookID:     book.ID,
			BookTitle:  l.BookTitle,
			ReturnedAt: now,
			Available:  book.Available,
		}
		return nil
	})
	if err != nil {
		return ReturnReceipt{}, err
	}

	e.publish(ctx, EventLoanReturned, loan, "", 0)
	return rec, nil
}

// MyLoans lists the borrower's active loans, newest first, with due-date
// fields computed against the current instant.
func (e *Engine) MyLoans(ctx context.Context, borrowerID string) ([]LoanView, error) {
	if borrowerID == "" {
		return nil, Errorf(CodeInvalidInput, "borrowerId is required")
	}
	loans, err := e.store.Loans().ListActiveByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(loans)
	return loanViews(loans, e.clock()), nil
}

func (e *Engine) clock() time.Time {
	// storage keeps microseconds
	return e.now().UTC().Truncate(time.Microsecond)
}

// publish hands a committed change to the event publisher. It reports whether
// the event was accepted; failures only get logged.
func (e *Engine) publish(ctx context.Context, typ string, l Loan, location string, daysOverdue int) (ok bool) {
	if e.events == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("lending event publisher panicked", "event_type", typ, "loan_id", l.ID, "panic", r)
			ok = false
		}
	}()

	ev := LoanEvent{
		ID:          e.newID(),
		Type:        typ,
		OccurredAt:  e.clock(),
		Loan:        l,
		Location:    location,
		DaysOverdue: daysOverdue,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.Warn("lending event not published", "event_type", typ, "loan_id", l.ID, "borrower_id", l.BorrowerID, "err", err)
		return false
	}
	return true
}

func (e *Engine) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "library."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c := Code(err); c != "" {
			span.SetAttributes(attribute.String("library.error_code", string(c)))
		}
	}
	span.End()
}
