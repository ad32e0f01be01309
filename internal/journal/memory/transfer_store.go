package memory

import (
	"context"
	"sort"
	"sync"

	"tokengate/internal/domain"
	"tokengate/internal/journal"
)

// TransferStore is an in-memory implementation of journal.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferRecord // keyed by transfer_id
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string]*domain.TransferRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if transfer_id exists.
func (s *TransferStore) Insert(_ context.Context, r *domain.TransferRecord) error {
	if r == nil || r.TransferID == "" {
		return journal.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.TransferID]; exists {
		return journal.ErrDuplicateKey
	}

	copy := *r
	s.data[r.TransferID] = &copy
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByID(_ context.Context, transferID string) (*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[transferID]
	if !exists {
		return nil, journal.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByAccount retrieves all records where addr is sender or recipient,
// ordered by executed_at ASC.
func (s *TransferStore) GetByAccount(_ context.Context, addr string) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if r.Sender == addr || r.Recipient == addr {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExecutedAt < result[j].ExecutedAt
	})

	return result, nil
}

// GetByTimeRange retrieves records executed within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if r.ExecutedAt >= start && r.ExecutedAt <= end {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExecutedAt < result[j].ExecutedAt
	})

	return result, nil
}

var _ journal.TransferStore = (*TransferStore)(nil)
