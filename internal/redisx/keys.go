package redisx

import "time"

const (
	// Idempotent reserve: idem:loan:reserve:{borrower_id}:{idempotency_key} -> response body
	KeyIdemReserve = "idem:loan:reserve:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLPending     = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
