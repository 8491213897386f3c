package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// tenantLocks serializes ledger mutations per tenant so the daily job and a
// racing payment cannot interleave read-modify-write sequences on the same
// tenant's balance and records.
type tenantLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lock acquires the tenant's mutex and returns the matching unlock func.
func (l *tenantLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}

	l.mu.Unlock()

	m.Lock()

	return m.Unlock
}
