package clickhouse

import (
	"context"
	"fmt"

	"tokengate/internal/domain"
	"tokengate/internal/journal"
)

// TransferStore implements journal.TransferStore on ClickHouse. The table
// is analytic and append-only; duplicate transfer IDs are collapsed by the
// ReplacingMergeTree engine rather than rejected, so Insert never returns
// ErrDuplicateKey.
type TransferStore struct {
	conn *Conn
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(conn *Conn) *TransferStore {
	return &TransferStore{conn: conn}
}

// Compile-time interface check.
var _ journal.TransferStore = (*TransferStore)(nil)

const transferColumns = `
	transfer_id, sender, recipient,
	amount, net_amount, total_fee,
	reflection_amount, liquidity_amount, marketing_amount, burned_amount,
	rate_pct, surcharge_applied, executed_at
`

// Insert adds a new record.
func (s *TransferStore) Insert(ctx context.Context, r *domain.TransferRecord) error {
	if r == nil || r.TransferID == "" {
		return journal.ErrInvalidInput
	}

	query := `
		INSERT INTO transfer_records (` + transferColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	surcharge := uint8(0)
	if r.SurchargeApplied {
		surcharge = 1
	}
	err := s.conn.Exec(ctx, query,
		r.TransferID, r.Sender, r.Recipient,
		r.Amount, r.NetAmount, r.TotalFee,
		r.Reflection, r.Liquidity, r.Marketing, r.Burned,
		r.RatePct, surcharge, r.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByID(ctx context.Context, transferID string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_records FINAL WHERE transfer_id = ?`

	rows, err := s.conn.Query(ctx, query, transferID)
	if err != nil {
		return nil, fmt.Errorf("get transfer record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, journal.ErrNotFound
	}
	return scanRecord(rows)
}

// GetByAccount retrieves all records where addr is sender or recipient.
func (s *TransferStore) GetByAccount(ctx context.Context, addr string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_records FINAL
		WHERE sender = ? OR recipient = ?
		ORDER BY executed_at ASC
	`
	return s.queryRecords(ctx, query, addr, addr)
}

// GetByTimeRange retrieves records executed within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_records FINAL
		WHERE executed_at >= ? AND executed_at <= ?
		ORDER BY executed_at ASC
	`
	return s.queryRecords(ctx, query, start, end)
}

func (s *TransferStore) queryRecords(ctx context.Context, query string, args ...any) ([]*domain.TransferRecord, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfer records: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransferRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(rows rowScanner) (*domain.TransferRecord, error) {
	var r domain.TransferRecord
	var surcharge uint8
	if err := rows.Scan(
		&r.TransferID, &r.Sender, &r.Recipient,
		&r.Amount, &r.NetAmount, &r.TotalFee,
		&r.Reflection, &r.Liquidity, &r.Marketing, &r.Burned,
		&r.RatePct, &surcharge, &r.ExecutedAt,
	); err != nil {
		return nil, fmt.Errorf("scan transfer record: %w", err)
	}
	r.SurchargeApplied = surcharge != 0
	return &r, nil
}
