package inbox_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-campus-library/internal/inbox"
	"github.com/ariefcatur/go-campus-library/internal/library"
)

func entry(eventID, userID string, at time.Time) inbox.Entry {
	return inbox.Entry{
		ID: uuid.NewString(), EventID: eventID, UserID: userID, Type: inbox.TypeLibrary,
		Title: "Book Reserved", Message: "msg " + eventID, CreatedAt: at,
	}
}

// exercise runs the same contract against every Repository implementation.
func exercise(t *testing.T, repo inbox.Repository) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	user := uuid.NewString()
	first, second := uuid.NewString(), uuid.NewString()

	added, err := repo.Add(ctx, entry(first, user, base))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Add(ctx, entry(first, user, base.Add(time.Minute)))
	require.NoError(t, err)
	assert.False(t, added, "same event must not create a second entry")

	_, err = repo.Add(ctx, entry(second, user, base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Add(ctx, entry(uuid.NewString(), "someone-else", base))
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].EventID)
	assert.False(t, list[0].Read)

	limited, err := repo.ListByUser(ctx, user, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, repo.MarkRead(ctx, user, list[1].ID))
	err = repo.MarkRead(ctx, "someone-else", list[0].ID)
	assert.ErrorIs(t, err, library.ErrNotFound)

	list, err = repo.ListByUser(ctx, user, 0)
	require.NoError(t, err)
	assert.False(t, list[0].Read)
	assert.True(t, list[1].Read)
}

func Test_MemoryRepository(t *testing.T) {
	exercise(t, inbox.NewMemoryRepository())
}

func Test_SQLRepository(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	repo, err := inbox.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Migrate(ctx))

	exercise(t, repo)
}
