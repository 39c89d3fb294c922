package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/pfrederiksen/afl-stats/internal/merge"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

// Accumulator collects records that arrive from many documents but belong to
// a few partitions, so each partition is merged once per run.
type Accumulator[T any] struct {
	mu      sync.Mutex
	pending map[string][]T
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator[T any]() *Accumulator[T] {
	return &Accumulator[T]{pending: make(map[string][]T)}
}

// Add queues records for the partition named key.
func (a *Accumulator[T]) Add(key string, records ...T) {
	a.mu.Lock()
	a.pending[key] = append(a.pending[key], records...)
	a.mu.Unlock()
}

// Len returns the number of queued records.
func (a *Accumulator[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, recs := range a.pending {
		n += len(recs)
	}
	return n
}

// Flush merges every queued partition, in key order, and empties the
// accumulator. report is called once per partition.
func (a *Accumulator[T]) Flush(ctx context.Context, m *merge.Merger[T], report func(storage.Partition, *merge.Result, error)) error {
	a.mu.Lock()
	pending := a.pending
	a.pending = make(map[string][]T)
	a.mu.Unlock()

	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := m.Merge(ctx, key, pending[key])
		if err != nil && !isWriteError(err) {
			return err
		}
		report(m.Partition(key), res, err)
	}
	return nil
}
