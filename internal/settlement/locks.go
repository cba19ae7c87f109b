package settlement

import (
	"fmt"
	"sync"
)

// entityLocks hands out one mutex per business entity so the
// recompute-then-update settlement sequence runs serially for an entity
// while different entities settle in parallel.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEntityLocks() *entityLocks {
	return &entityLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (el *entityLocks) lock(entityType string, entityID int64) *sync.Mutex {
	key := fmt.Sprintf("%s:%d", entityType, entityID)

	el.mu.Lock()
	m, ok := el.locks[key]
	if !ok {
		m = &sync.Mutex{}
		el.locks[key] = m
	}
	el.mu.Unlock()

	m.Lock()
	return m
}
