package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const pending = "__pending__"

// ErrInFlight means another request with the same key has not finished yet.
var ErrInFlight = errors.New("request with this idempotency key is still in progress")

// Idempotency remembers the response of a reserve call per borrower and key,
// so a retried request gets the first answer instead of a second loan.
type Idempotency struct {
	rdb *redis.Client
}

func NewIdempotency(rdb *redis.Client) *Idempotency { return &Idempotency{rdb: rdb} }

func idemKey(borrowerID, key string) string {
	return fmt.Sprintf(KeyIdemReserve, borrowerID, key)
}

// Begin claims the key. found=true returns the stored response of an earlier
// call; otherwise the caller owns the key until Complete or Abort.
func (i *Idempotency) Begin(ctx context.Context, borrowerID, key string) (resp []byte, found bool, err error) {
	k := idemKey(borrowerID, key)
	ok, err := i.rdb.SetNX(ctx, k, pending, TTLPending).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, false, nil
	}
	v, err := i.rdb.Get(ctx, k).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET, try once more
		return i.Begin(ctx, borrowerID, key)
	case err != nil:
		return nil, false, err
	case string(v) == pending:
		return nil, false, ErrInFlight
	}
	return v, true, nil
}

func (i *Idempotency) Complete(ctx context.Context, borrowerID, key string, resp []byte) error {
	return i.rdb.Set(ctx, idemKey(borrowerID, key), resp, TTLIdempotency).Err()
}

// Abort frees the key after a failed call so the client may retry.
func (i *Idempotency) Abort(ctx context.Context, borrowerID, key string) error {
	return i.rdb.Del(ctx, idemKey(borrowerID, key)).Err()
}
