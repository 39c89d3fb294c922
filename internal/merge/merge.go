package merge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/logger"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

// State is the lifecycle position of a partition during a merge.
type State int

const (
	NotLoaded State = iota
	Loaded
	Merging
	Persisted
)

func (s State) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loaded:
		return "loaded"
	case Merging:
		return "merging"
	case Persisted:
		return "persisted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// WriteError reports that a partition could not be persisted. The partition
// keeps its previous contents.
type WriteError struct {
	Partition storage.Partition
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing partition %s: %v", e.Partition, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Result counts what a merge did to one partition.
type Result struct {
	Partition storage.Partition
	State     State
	Inserted  int
	Replaced  int
	Unchanged int
	Stale     int
	Changes   []*record.Change
}

// Add accumulates another result's counts and changes.
func (r *Result) Add(other *Result) {
	r.Inserted += other.Inserted
	r.Replaced += other.Replaced
	r.Unchanged += other.Unchanged
	r.Stale += other.Stale
	r.Changes = append(r.Changes, other.Changes...)
}

type options struct {
	locks        *Locks
	recencyGuard bool
	now          func() time.Time
}

// Option configures a Merger.
type Option func(*options)

// WithLocks shares a lock registry between mergers. Without it each Merger
// has its own.
func WithLocks(l *Locks) Option {
	return func(o *options) { o.locks = l }
}

// WithRecencyGuard skips incoming records observed earlier than the stored
// version instead of letting the last write win.
func WithRecencyGuard() Option {
	return func(o *options) { o.recencyGuard = true }
}

// WithClock sets the time source used to stamp changes.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Merger merges records of one entity into a Store.
type Merger[T any] struct {
	codec record.Codec[T]
	store storage.Store
	opts  options
}

// New creates a Merger for codec's entity.
func New[T any](codec record.Codec[T], store storage.Store, opts ...Option) *Merger[T] {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locks == nil {
		o.locks = NewLocks()
	}
	return &Merger[T]{codec: codec, store: store, opts: o}
}

// Partition returns the storage partition for key within this entity.
func (m *Merger[T]) Partition(key string) storage.Partition {
	return storage.Partition{Entity: m.codec.Entity, Key: key}
}

// partition is the in-memory working copy used during one merge.
type partition[T any] struct {
	id      storage.Partition
	state   State
	records []T
	rows    [][]string
	index   map[string]int
	dirty   bool
}

// Merge folds records into the partition named key and persists it.
// A missing or unreadable partition is treated as empty.
func (m *Merger[T]) Merge(ctx context.Context, key string, records []T) (*Result, error) {
	p := m.Partition(key)
	unlock := m.opts.locks.Lock(p)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pt := m.load(ctx, p)
	res := &Result{Partition: p}
	m.fold(pt, records, res)

	if pt.dirty {
		if err := m.persist(ctx, pt); err != nil {
			res.State = pt.state
			return res, err
		}
	}
	pt.state = Persisted
	res.State = pt.state
	record.SortChanges(res.Changes)

	logger.Debug("Partition merged", logger.Fields{
		"partition": p.String(),
		"inserted":  res.Inserted,
		"replaced":  res.Replaced,
		"unchanged": res.Unchanged,
		"stale":     res.Stale,
	})
	return res, nil
}

func (m *Merger[T]) load(ctx context.Context, p storage.Partition) *partition[T] {
	pt := &partition[T]{id: p, state: NotLoaded, index: make(map[string]int)}

	table, err := m.store.ReadAll(ctx, p)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		logger.Warn("Unreadable partition, starting empty", logger.Fields{
			"partition": p.String(),
			"error":     err.Error(),
		})
		pt.dirty = true
	case !slices.Equal(table.Columns, m.codec.Columns):
		logger.Warn("Partition header does not match, starting empty", logger.Fields{
			"partition": p.String(),
		})
		pt.dirty = true
	default:
		for i, row := range table.Rows {
			rec, err := m.codec.Decode(row)
			if err != nil {
				logger.Warn("Dropping undecodable stored row", logger.Fields{
					"partition": p.String(),
					"row":       i,
					"error":     err.Error(),
				})
				pt.dirty = true
				continue
			}
			key := m.codec.Key(rec)
			if j, ok := pt.index[key]; ok {
				pt.records[j] = rec
				pt.rows[j] = row
				pt.dirty = true
				continue
			}
			pt.index[key] = len(pt.records)
			pt.records = append(pt.records, rec)
			pt.rows = append(pt.rows, row)
		}
	}
	pt.state = Loaded
	return pt
}

func (m *Merger[T]) fold(pt *partition[T], records []T, res *Result) {
	pt.state = Merging
	now := m.opts.now()
	for _, rec := range records {
		key := m.codec.Key(rec)
		row := m.codec.Encode(rec)

		j, ok := pt.index[key]
		if !ok {
			pt.index[key] = len(pt.records)
			pt.records = append(pt.records, rec)
			pt.rows = append(pt.rows, row)
			pt.dirty = true
			res.Inserted++
			res.Changes = append(res.Changes, record.Inserted(key, now))
			continue
		}

		if m.opts.recencyGuard && m.codec.Observed(rec).Before(m.codec.Observed(pt.records[j])) {
			res.Stale++
			continue
		}

		changes := record.Compare(key, m.codec.Columns, pt.rows[j], row, now)
		if len(changes) == 0 {
			res.Unchanged++
			// The guard compares against the stored stamp, so a newer
			// observation of the same values still has to be written.
			if m.opts.recencyGuard && m.codec.Observed(rec).After(m.codec.Observed(pt.records[j])) {
				pt.dirty = true
			}
		} else {
			res.Replaced++
			res.Changes = append(res.Changes, changes...)
			pt.dirty = true
		}
		pt.records[j] = rec
		pt.rows[j] = row
	}
}

func (m *Merger[T]) persist(ctx context.Context, pt *partition[T]) error {
	table := &storage.Table{Columns: m.codec.Columns, Rows: pt.rows}
	if err := m.store.WriteAll(ctx, pt.id, table); err != nil {
		logger.Error("Partition write failed", logger.Fields{"partition": pt.id.String()}, err)
		return &WriteError{Partition: pt.id, Err: err}
	}
	logger.Info("Partition persisted", logger.Fields{
		"partition": pt.id.String(),
		"records":   len(pt.rows),
	})
	return nil
}

// Load returns the decoded records of a partition. A missing partition yields
// no records and no error.
func (m *Merger[T]) Load(ctx context.Context, key string) ([]T, error) {
	return Read(ctx, m.store, m.codec, key)
}

// Read decodes one partition without taking a lock.
func Read[T any](ctx context.Context, store storage.Store, codec record.Codec[T], key string) ([]T, error) {
	p := storage.Partition{Entity: codec.Entity, Key: key}
	table, err := store.ReadAll(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !slices.Equal(table.Columns, codec.Columns) {
		return nil, fmt.Errorf("partition %s: unexpected header", p)
	}
	out := make([]T, 0, len(table.Rows))
	for i, row := range table.Rows {
		rec, err := codec.Decode(row)
		if err != nil {
			return nil, fmt.Errorf("partition %s row %d: %w", p, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadAll decodes every partition of codec's entity, in partition order.
func ReadAll[T any](ctx context.Context, store storage.Store, codec record.Codec[T]) ([]T, error) {
	parts, err := store.List(ctx, codec.Entity)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, p := range parts {
		recs, err := Read(ctx, store, codec, p.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}
