package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"molecule/internal/policy/models"
	"molecule/pkg/domain"
	"molecule/pkg/platform/sentinel"
)

// InMemory keeps records in a map guarded by one RWMutex. Returned records
// are copies.
type InMemory struct {
	mu      sync.RWMutex
	records map[domain.PolicyID]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[domain.PolicyID]*models.Record)}
}

// CreateBatch inserts every record or none. The first id already present, or
// repeated within the batch, fails the call.
func (s *InMemory) CreateBatch(_ context.Context, records []*models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[domain.PolicyID]struct{}, len(records))
	for _, r := range records {
		if _, exists := s.records[r.ID]; exists {
			return &KeyError{ID: r.ID, Err: sentinel.ErrConflict}
		}
		if _, dup := seen[r.ID]; dup {
			return &KeyError{ID: r.ID, Err: sentinel.ErrConflict}
		}
		seen[r.ID] = struct{}{}
	}
	for _, r := range records {
		s.records[r.ID] = r.Clone()
	}
	return nil
}

// DeleteBatch removes every id or none. An id that is absent, or repeated
// within the batch, fails the call.
func (s *InMemory) DeleteBatch(_ context.Context, ids []domain.PolicyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[domain.PolicyID]struct{}, len(ids))
	for _, id := range ids {
		_, exists := s.records[id]
		_, dup := seen[id]
		if !exists || dup {
			return &KeyError{ID: id, Err: sentinel.ErrNotFound}
		}
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

func (s *InMemory) SetEnabled(_ context.Context, id domain.PolicyID, enabled bool, now time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, &KeyError{ID: id, Err: sentinel.ErrNotFound}
	}
	r.SetEnabled(enabled, now)
	return r.Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.PolicyID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, &KeyError{ID: id, Err: sentinel.ErrNotFound}
	}
	return r.Clone(), nil
}

// List returns all records ordered by id.
func (s *InMemory) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	out := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.Record) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}
