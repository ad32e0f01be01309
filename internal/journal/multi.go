package journal

import (
	"context"
	"log"

	"tokengate/internal/domain"
)

// MultiTransferStore fans writes out to a primary store and any number of
// mirrors. Reads always hit the primary; mirror write failures are logged
// and swallowed so an analytic backend cannot fail a transfer record.
type MultiTransferStore struct {
	primary TransferStore
	mirrors []TransferStore
}

// NewMultiTransferStore creates a fan-out store around primary.
func NewMultiTransferStore(primary TransferStore, mirrors ...TransferStore) *MultiTransferStore {
	return &MultiTransferStore{primary: primary, mirrors: mirrors}
}

var _ TransferStore = (*MultiTransferStore)(nil)

func (m *MultiTransferStore) Insert(ctx context.Context, r *domain.TransferRecord) error {
	if err := m.primary.Insert(ctx, r); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.Insert(ctx, r); err != nil {
			log.Printf("[journal] mirror insert for %s failed: %v", r.TransferID, err)
		}
	}
	return nil
}

func (m *MultiTransferStore) GetByID(ctx context.Context, transferID string) (*domain.TransferRecord, error) {
	return m.primary.GetByID(ctx, transferID)
}

func (m *MultiTransferStore) GetByAccount(ctx context.Context, addr string) ([]*domain.TransferRecord, error) {
	return m.primary.GetByAccount(ctx, addr)
}

func (m *MultiTransferStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransferRecord, error) {
	return m.primary.GetByTimeRange(ctx, start, end)
}
