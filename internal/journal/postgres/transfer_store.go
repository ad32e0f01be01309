package postgres

import (
	"context"
	"fmt"

	"tokengate/internal/domain"
	"tokengate/internal/journal"
)

// TransferStore implements journal.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ journal.TransferStore = (*TransferStore)(nil)

const transferColumns = `
	transfer_id, sender, recipient,
	amount, net_amount, total_fee,
	reflection_amount, liquidity_amount, marketing_amount, burned_amount,
	rate_pct, surcharge_applied, executed_at
`

// Insert adds a new record. Returns ErrDuplicateKey if transfer_id exists.
func (s *TransferStore) Insert(ctx context.Context, r *domain.TransferRecord) error {
	if r == nil || r.TransferID == "" {
		return journal.ErrInvalidInput
	}

	query := `
		INSERT INTO transfer_records (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		r.TransferID, r.Sender, r.Recipient,
		r.Amount, r.NetAmount, r.TotalFee,
		r.Reflection, r.Liquidity, r.Marketing, r.Burned,
		r.RatePct, r.SurchargeApplied, r.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return journal.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByID(ctx context.Context, transferID string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_records WHERE transfer_id = $1`

	var r domain.TransferRecord
	err := s.pool.QueryRow(ctx, query, transferID).Scan(
		&r.TransferID, &r.Sender, &r.Recipient,
		&r.Amount, &r.NetAmount, &r.TotalFee,
		&r.Reflection, &r.Liquidity, &r.Marketing, &r.Burned,
		&r.RatePct, &r.SurchargeApplied, &r.ExecutedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, journal.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer record: %w", err)
	}
	return &r, nil
}

// GetByAccount retrieves all records where addr is sender or recipient.
func (s *TransferStore) GetByAccount(ctx context.Context, addr string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_records
		WHERE sender = $1 OR recipient = $1
		ORDER BY executed_at ASC
	`
	return s.queryRecords(ctx, query, addr)
}

// GetByTimeRange retrieves records executed within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_records
		WHERE executed_at >= $1 AND executed_at <= $2
		ORDER BY executed_at ASC
	`
	return s.queryRecords(ctx, query, start, end)
}

func (s *TransferStore) queryRecords(ctx context.Context, query string, args ...any) ([]*domain.TransferRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfer records: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransferRecord
	for rows.Next() {
		var r domain.TransferRecord
		if err := rows.Scan(
			&r.TransferID, &r.Sender, &r.Recipient,
			&r.Amount, &r.NetAmount, &r.TotalFee,
			&r.Reflection, &r.Liquidity, &r.Marketing, &r.Burned,
			&r.RatePct, &r.SurchargeApplied, &r.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transfer record: %w", err)
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}
