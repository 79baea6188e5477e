package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-campus-library/internal/inbox"
	"github.com/ariefcatur/go-campus-library/internal/library"
	"github.com/ariefcatur/go-campus-library/internal/memstore"
	"github.com/ariefcatur/go-campus-library/internal/notify"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func Test_Render(t *testing.T) {
	due := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	p := library.LoanEventPayload{BookTitle: "Operating System Concepts", Location: "Shelf A-14", DueDate: due, DaysOverdue: 3}

	tests := []struct {
		eventType string
		title     string
		message   string
	}{
		{library.EventLoanReserved, "Book Reserved", `You have successfully reserved "Operating System Concepts". Pick it up from Shelf A-14. Due date: 2025-03-15.`},
		{library.EventLoanRenewed, "Book Renewed", `Your book "Operating System Concepts" has been renewed. New due date: 2025-03-15.`},
		{library.EventLoanReturned, "Book Returned", `Thank you for returning "Operating System Concepts".`},
		{library.EventLoanOverdue, "Book Overdue", `Your book "Operating System Concepts" is 3 day(s) overdue. Please return it as soon as possible.`},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			title, msg, ok := notify.Render(tt.eventType, p)
			require.True(t, ok)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.message, msg)
		})
	}

	_, msg, _ := notify.Render(library.EventLoanReserved, library.LoanEventPayload{BookTitle: "X", DueDate: due})
	assert.Contains(t, msg, "Pick it up from the library counter.")

	_, _, ok := notify.Render("OrderCreated", p)
	assert.False(t, ok)
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (d *memDedup) Claim(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) Release(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	return nil
}

type failingRepo struct{ inbox.Repository }

func (failingRepo) Add(context.Context, inbox.Entry) (bool, error) { return false, errors.New("db down") }

func envelope(t *testing.T, id, typ string) library.Envelope {
	t.Helper()
	env, err := library.NewEnvelope(library.LoanEvent{
		ID: id, Type: typ, OccurredAt: time.Now(),
		Loan: library.Loan{ID: "l1", BookID: "b1", BookTitle: "Algorithms", BorrowerID: "S1", DueDate: time.Now().Add(14 * 24 * time.Hour)},
	}, "test")
	require.NoError(t, err)
	return env
}

func Test_Handler_DeliversOncePerEvent(t *testing.T) {
	repo := inbox.NewMemoryRepository()
	h := &notify.Handler{Emitter: notify.NewEmitter(repo, discard), Dedup: &memDedup{seen: map[string]bool{}}, Log: discard}
	ctx := context.Background()
	env := envelope(t, "e1", library.EventLoanReserved)

	require.NoError(t, h.Handle(ctx, env))
	require.NoError(t, h.Handle(ctx, env))

	list, err := repo.ListByUser(ctx, "S1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Book Reserved", list[0].Title)
	assert.Equal(t, inbox.TypeLibrary, list[0].Type)
	assert.False(t, list[0].Read)
}

func Test_Handler_WithoutDedupStillSingleEntry(t *testing.T) {
	repo := inbox.NewMemoryRepository()
	h := &notify.Handler{Emitter: notify.NewEmitter(repo, discard), Dedup: &memDedup{err: errors.New("redis down")}, Log: discard}
	ctx := context.Background()
	env := envelope(t, "e1", library.EventLoanRenewed)

	require.NoError(t, h.Handle(ctx, env))
	require.NoError(t, h.Handle(ctx, env))

	list, err := repo.ListByUser(ctx, "S1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func Test_Handler_FailureReleasesClaim(t *testing.T) {
	dedup := &memDedup{seen: map[string]bool{}}
	h := &notify.Handler{Emitter: notify.NewEmitter(failingRepo{}, discard), Dedup: dedup, Log: discard}
	ctx := context.Background()

	err := h.Handle(ctx, envelope(t, "e1", library.EventLoanReturned))

	require.Error(t, err)
	first, err := dedup.Claim(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, first)
}

func Test_Handler_IgnoresUnknownAndPoison(t *testing.T) {
	repo := inbox.NewMemoryRepository()
	h := &notify.Handler{Emitter: notify.NewEmitter(repo, discard), Log: discard}
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, library.Envelope{EventID: "x", EventType: "OrderCreated"}))
	require.NoError(t, h.Handle(ctx, library.Envelope{EventID: "y", EventType: library.EventLoanReserved, Payload: []byte(`{not json`)}))

	list, err := repo.ListByUser(ctx, "S1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func Test_Dispatcher_EngineToInbox(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := inbox.NewMemoryRepository()
	d := notify.NewDispatcher(&notify.Handler{Emitter: notify.NewEmitter(repo, discard), Log: discard}, "test", 16, discard)
	d.Start(ctx)

	store := memstore.New()
	require.NoError(t, store.Catalog().Insert(ctx, library.Book{ID: "b1", ISBN: "1", Title: "Algorithms", Author: "A", Location: "Shelf A-12", Total: 1, Available: 1}))
	e, err := library.NewEngine(store, library.WithPublisher(d))
	require.NoError(t, err)

	loan, err := e.Reserve(ctx, "b1", "S1")
	require.NoError(t, err)
	_, err = e.Renew(ctx, loan.ID, "S1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		list, _ := repo.ListByUser(ctx, "S1", 0)
		return len(list) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	d.WaitClosed()
}

type flakyRepo struct {
	*inbox.MemoryRepository
	mu    sync.Mutex
	calls int
}

func (r *flakyRepo) Add(ctx context.Context, e inbox.Entry) (bool, error) {
	r.mu.Lock()
	r.calls++
	first := r.calls == 1
	r.mu.Unlock()
	if first {
		return false, errors.New("connection reset")
	}
	return r.MemoryRepository.Add(ctx, e)
}

func (r *flakyRepo) attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func Test_Dispatcher_ShutdownDuringRetryStillDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := &flakyRepo{MemoryRepository: inbox.NewMemoryRepository()}
	d := notify.NewDispatcher(&notify.Handler{Emitter: notify.NewEmitter(repo, discard), Log: discard}, "test", 4, discard)
	d.Start(ctx)

	require.NoError(t, d.Publish(ctx, library.LoanEvent{
		ID: "e1", Type: library.EventLoanReturned, OccurredAt: time.Now(),
		Loan: library.Loan{ID: "l1", BookTitle: "Algorithms", BorrowerID: "S1"},
	}))
	require.Eventually(t, func() bool { return repo.attempts() >= 1 }, time.Second, time.Millisecond)

	cancel()
	d.WaitClosed()

	list, err := repo.ListByUser(context.Background(), "S1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Book Returned", list[0].Title)
}

func Test_Dispatcher_FullQueueFailsFast(t *testing.T) {
	repo := inbox.NewMemoryRepository()
	d := notify.NewDispatcher(&notify.Handler{Emitter: notify.NewEmitter(repo, discard), Log: discard}, "test", 1, discard)
	ev := library.LoanEvent{ID: "e1", Type: library.EventLoanReserved, Loan: library.Loan{ID: "l1", BorrowerID: "S1"}}

	require.NoError(t, d.Publish(context.Background(), ev))
	ev.ID = "e2"
	assert.ErrorIs(t, d.Publish(context.Background(), ev), notify.ErrQueueFull)
}
