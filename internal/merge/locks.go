package merge

import (
	"sync"

	"github.com/pfrederiksen/afl-stats/internal/storage"
)

// Locks hands out one mutex per partition. There is no lock spanning
// partitions.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks creates an empty lock registry.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the partition is free and returns the matching unlock.
func (l *Locks) Lock(p storage.Partition) func() {
	l.mu.Lock()
	m, ok := l.locks[p.String()]
	if !ok {
		m = &sync.Mutex{}
		l.locks[p.String()] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
