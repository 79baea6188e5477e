package redisx_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-campus-library/internal/redisx"
)

// REDIS_TEST_ADDR=localhost:6379 enables these tests.
func client(t *testing.T) *redisx.Idempotency {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redisx.New(addr)
	t.Cleanup(func() { _ = rdb.Close() })
	return redisx.NewIdempotency(rdb)
}

func Test_Idempotency_ReplaysStoredResponse(t *testing.T) {
	idem := client(t)
	ctx := context.Background()
	borrower, key := uuid.NewString(), uuid.NewString()

	_, found, err := idem.Begin(ctx, borrower, key)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = idem.Begin(ctx, borrower, key)
	assert.ErrorIs(t, err, redisx.ErrInFlight)

	require.NoError(t, idem.Complete(ctx, borrower, key, []byte(`{"id":"l1"}`)))
	resp, found, err := idem.Begin(ctx, borrower, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"id":"l1"}`, string(resp))
}

func Test_Idempotency_AbortAllowsRetry(t *testing.T) {
	idem := client(t)
	ctx := context.Background()
	borrower, key := uuid.NewString(), uuid.NewString()

	_, _, err := idem.Begin(ctx, borrower, key)
	require.NoError(t, err)
	require.NoError(t, idem.Abort(ctx, borrower, key))

	_, found, err := idem.Begin(ctx, borrower, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func Test_Dedup_ClaimOnce(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redisx.New(addr)
	t.Cleanup(func() { _ = rdb.Close() })
	d := redisx.NewDedup(rdb, "notifier-test")
	ctx := context.Background()
	id := uuid.NewString()

	first, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, d.Release(ctx, id))
	afterRelease, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, afterRelease)

	n, err := rdb.Exists(ctx, "dedup:notifier-test:"+id).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
