package cache

import (
	"context"
	"sync"

	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
)

// lockEntry is one held or awaited key. refs counts the holder plus every waiter,
// so the entry is dropped only when nobody references it.
type lockEntry struct {
	slot chan struct{}
	refs int
}

// InMemoryCustomerLocker implements CustomerLocker with per-key mutual exclusion inside one process.
// This is suitable for single-instance deployments and testing.
// WARNING: Two processes sharing one database do not see each other's locks;
// use the Redis locker when running more than one instance.
type InMemoryCustomerLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewInMemoryCustomerLocker creates a new in-memory customer locker
func NewInMemoryCustomerLocker() *InMemoryCustomerLocker {
	return &InMemoryCustomerLocker{
		entries: make(map[string]*lockEntry),
	}
}

// Acquire blocks until key is free or ctx is done
func (l *InMemoryCustomerLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{slot: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			l.unref(key, e)
		})
	}, nil
}

func (l *InMemoryCustomerLocker) unref(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Size returns the number of keys currently held or awaited (for testing/monitoring)
func (l *InMemoryCustomerLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close releases nothing; it exists so both lockers share one lifecycle
func (l *InMemoryCustomerLocker) Close() error {
	return nil
}

// Ensure InMemoryCustomerLocker implements CustomerLocker
var _ appledger.CustomerLocker = (*InMemoryCustomerLocker)(nil)
