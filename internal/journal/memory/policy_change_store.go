package memory

import (
	"context"
	"sort"
	"sync"

	"tokengate/internal/domain"
	"tokengate/internal/journal"
)

// PolicyChangeStore is an in-memory implementation of journal.PolicyChangeStore.
type PolicyChangeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PolicyChange // keyed by change_id
}

// NewPolicyChangeStore creates a new in-memory policy change store.
func NewPolicyChangeStore() *PolicyChangeStore {
	return &PolicyChangeStore{
		data: make(map[string]*domain.PolicyChange),
	}
}

// Insert adds a new change. Returns ErrDuplicateKey if change_id exists.
func (s *PolicyChangeStore) Insert(_ context.Context, c *domain.PolicyChange) error {
	if c == nil || c.ChangeID == "" {
		return journal.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ChangeID]; exists {
		return journal.ErrDuplicateKey
	}

	copy := *c
	s.data[c.ChangeID] = &copy
	return nil
}

// GetByKind retrieves all changes of one kind, ordered by changed_at ASC.
func (s *PolicyChangeStore) GetByKind(_ context.Context, kind string) ([]*domain.PolicyChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PolicyChange
	for _, c := range s.data {
		if c.Kind == kind {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ChangedAt < result[j].ChangedAt
	})

	return result, nil
}

// GetAll retrieves all changes, ordered by changed_at ASC.
func (s *PolicyChangeStore) GetAll(_ context.Context) ([]*domain.PolicyChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PolicyChange, 0, len(s.data))
	for _, c := range s.data {
		copy := *c
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ChangedAt < result[j].ChangedAt
	})

	return result, nil
}

var _ journal.PolicyChangeStore = (*PolicyChangeStore)(nil)
