package storage

import (
	"context"
	"fmt"
	"sync"

	"places-sweep/types"
)

// MemoryBusinessRepository is an in-memory BusinessRepository, used to serve
// a sweep document without a database.
type MemoryBusinessRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]types.Business
}

// NewMemoryBusinessRepository creates a repository seeded with businesses
func NewMemoryBusinessRepository(businesses []types.Business) *MemoryBusinessRepository {
	repo := &MemoryBusinessRepository{byID: make(map[string]types.Business)}
	repo.SaveAll(context.Background(), businesses)
	return repo
}

// SaveAll adds businesses whose ID is not present yet
func (r *MemoryBusinessRepository) SaveAll(ctx context.Context, businesses []types.Business) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := 0
	for _, b := range businesses {
		if _, exists := r.byID[b.ID]; exists {
			continue
		}
		r.byID[b.ID] = b
		r.order = append(r.order, b.ID)
		saved++
	}
	return saved, nil
}

// GetByID retrieves a business by ID
func (r *MemoryBusinessRepository) GetByID(ctx context.Context, id string) (*types.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("business %s: %w", id, ErrNotFound)
	}
	return &b, nil
}

// GetAll returns businesses in insertion order
func (r *MemoryBusinessRepository) GetAll(ctx context.Context) ([]types.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	businesses := make([]types.Business, 0, len(r.order))
	for _, id := range r.order {
		businesses = append(businesses, r.byID[id])
	}
	return businesses, nil
}
