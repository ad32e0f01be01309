// Package journal defines the append-only audit stores fed by the core
// after each committed operation. The ledger remains the source of truth;
// journal writes are post-commit and never roll a transfer back.
package journal

import (
	"context"

	"tokengate/internal/domain"
)

// TransferStore provides access to transfer_records storage.
type TransferStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if transfer_id exists.
	Insert(ctx context.Context, r *domain.TransferRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, transferID string) (*domain.TransferRecord, error)

	// GetByAccount retrieves all records where addr is sender or recipient,
	// ordered by executed_at ASC.
	GetByAccount(ctx context.Context, addr string) ([]*domain.TransferRecord, error)

	// GetByTimeRange retrieves records executed within [start, end] millis
	// (inclusive), ordered by executed_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransferRecord, error)
}

// PolicyChangeStore provides access to policy_changes storage.
type PolicyChangeStore interface {
	// Insert adds a new change. Returns ErrDuplicateKey if change_id exists.
	Insert(ctx context.Context, c *domain.PolicyChange) error

	// GetByKind retrieves all changes of one kind, ordered by changed_at ASC.
	GetByKind(ctx context.Context, kind string) ([]*domain.PolicyChange, error)

	// GetAll retrieves all changes, ordered by changed_at ASC.
	GetAll(ctx context.Context) ([]*domain.PolicyChange, error)
}
