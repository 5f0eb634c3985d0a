package syncsvc

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// MemoryStore is an in-process RemoteStore. It backs the "memory" sync
// backend and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.SessionSyncRecord

	// AfterGet, when set, runs after every Get outside the lock.
	AfterGet func(profileID string)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.SessionSyncRecord)}
}

func (m *MemoryStore) Get(_ context.Context, profileID string) (models.SessionSyncRecord, error) {
	m.mu.Lock()
	rec, ok := m.records[profileID]
	hook := m.AfterGet
	m.mu.Unlock()

	if hook != nil {
		hook(profileID)
	}
	if !ok {
		return models.SessionSyncRecord{}, common.ErrorNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Put(_ context.Context, rec models.SessionSyncRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ProfileID] = rec
	return nil
}
