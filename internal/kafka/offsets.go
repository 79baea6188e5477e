package kafka

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

type tracked struct {
	m    kafka.Message
	done bool
}

// offsetTracker commits each partition in fetch order. A message finished out
// of order waits until everything fetched before it on its partition is done.
type offsetTracker struct {
	mu      sync.Mutex
	pending map[int][]*tracked
	commit  func(ctx context.Context, msgs ...kafka.Message) error
}

func newOffsetTracker(commit func(ctx context.Context, msgs ...kafka.Message) error) *offsetTracker {
	return &offsetTracker{pending: map[int][]*tracked{}, commit: commit}
}

func (o *offsetTracker) add(m kafka.Message) *tracked {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := &tracked{m: m}
	o.pending[m.Partition] = append(o.pending[m.Partition], t)
	return t
}

// complete marks t done and commits the newest message of the finished
// prefix, if any. Commits are serialized so offsets never move backwards.
func (o *offsetTracker) complete(ctx context.Context, t *tracked) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	t.done = true
	q := o.pending[t.m.Partition]
	n := 0
	for n < len(q) && q[n].done {
		n++
	}
	if n == 0 {
		return nil
	}
	if err := o.commit(ctx, q[n-1].m); err != nil {
		// keep the prefix; the next completion retries the commit
		return err
	}
	o.pending[t.m.Partition] = q[n:]
	return nil
}
