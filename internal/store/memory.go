package store

import (
	"context"
	"sync"

	"itinerary/internal/model"
)

// Memory is the default store used when no database is configured; it lives as long as the process.
type Memory struct {
	mu     sync.Mutex
	stores []model.Store
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) SaveCatalog(_ context.Context, stores []model.Store) error {
	for _, s := range stores {
		if err := Validate(s); err != nil {
			return err
		}
	}
	cp := make([]model.Store, len(stores))
	copy(cp, stores)
	m.mu.Lock()
	m.stores = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) LoadCatalog(_ context.Context) ([]model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Store, len(m.stores))
	copy(out, m.stores)
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }
