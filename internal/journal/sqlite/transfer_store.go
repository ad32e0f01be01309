package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tokengate/internal/domain"
	"tokengate/internal/journal"
)

// TransferStore implements journal.TransferStore on the embedded database.
type TransferStore struct {
	db *DB
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(db *DB) *TransferStore {
	return &TransferStore{db: db}
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

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	query := `
		INSERT INTO transfer_records (` + transferColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.db.ExecContext(ctx, query,
		r.TransferID, r.Sender, r.Recipient,
		r.Amount, r.NetAmount, r.TotalFee,
		r.Reflection, r.Liquidity, r.Marketing, r.Burned,
		r.RatePct, boolToInt(r.SurchargeApplied), r.ExecutedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return journal.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByID(ctx context.Context, transferID string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_records WHERE transfer_id = ?`

	row := s.db.db.QueryRowContext(ctx, query, transferID)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, journal.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer record: %w", err)
	}
	return r, nil
}

// GetByAccount retrieves all records where addr is sender or recipient.
func (s *TransferStore) GetByAccount(ctx context.Context, addr string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_records
		WHERE sender = ? OR recipient = ?
		ORDER BY executed_at ASC
	`
	return s.queryRecords(ctx, query, addr, addr)
}

// GetByTimeRange retrieves records executed within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_records
		WHERE executed_at >= ? AND executed_at <= ?
		ORDER BY executed_at ASC
	`
	return s.queryRecords(ctx, query, start, end)
}

func (s *TransferStore) queryRecords(ctx context.Context, query string, args ...any) ([]*domain.TransferRecord, error) {
	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfer records: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransferRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.TransferRecord, error) {
	var r domain.TransferRecord
	var surcharge int
	if err := row.Scan(
		&r.TransferID, &r.Sender, &r.Recipient,
		&r.Amount, &r.NetAmount, &r.TotalFee,
		&r.Reflection, &r.Liquidity, &r.Marketing, &r.Burned,
		&r.RatePct, &surcharge, &r.ExecutedAt,
	); err != nil {
		return nil, err
	}
	r.SurchargeApplied = surcharge != 0
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation detects a primary-key conflict from the driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
