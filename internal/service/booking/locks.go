package booking

import (
	"sync"

	"github.com/google/uuid"
)

// providerLocks serializes the conflict-check-then-insert sequence per
// provider. Without it two concurrent requests for the same provider can
// both pass the advisory check and both commit. The database exclusion
// constraint remains the backstop for multi-instance deployments.
type providerLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newProviderLocks() *providerLocks {
	return &providerLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (p *providerLocks) lock(providerID uuid.UUID) *sync.Mutex {
	p.mu.Lock()
	m, ok := p.locks[providerID]
	if !ok {
		m = &sync.Mutex{}
		p.locks[providerID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m
}
