package sqlite

import (
	"context"
	"fmt"

	"tokengate/internal/domain"
	"tokengate/internal/journal"
)

// PolicyChangeStore implements journal.PolicyChangeStore on the embedded database.
type PolicyChangeStore struct {
	db *DB
}

// NewPolicyChangeStore creates a new PolicyChangeStore.
func NewPolicyChangeStore(db *DB) *PolicyChangeStore {
	return &PolicyChangeStore{db: db}
}

// Compile-time interface check.
var _ journal.PolicyChangeStore = (*PolicyChangeStore)(nil)

// Insert adds a new change. Returns ErrDuplicateKey if change_id exists.
func (s *PolicyChangeStore) Insert(ctx context.Context, c *domain.PolicyChange) error {
	if c == nil || c.ChangeID == "" {
		return journal.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	query := `
		INSERT INTO policy_changes (change_id, kind, actor, subject, detail, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.db.ExecContext(ctx, query, c.ChangeID, c.Kind, c.Actor, c.Subject, c.Detail, c.ChangedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return journal.ErrDuplicateKey
		}
		return fmt.Errorf("insert policy change: %w", err)
	}
	return nil
}

// GetByKind retrieves all changes of one kind, ordered by changed_at ASC.
func (s *PolicyChangeStore) GetByKind(ctx context.Context, kind string) ([]*domain.PolicyChange, error) {
	query := `
		SELECT change_id, kind, actor, subject, detail, changed_at
		FROM policy_changes
		WHERE kind = ?
		ORDER BY changed_at ASC
	`
	return s.queryChanges(ctx, query, kind)
}

// GetAll retrieves all changes, ordered by changed_at ASC.
func (s *PolicyChangeStore) GetAll(ctx context.Context) ([]*domain.PolicyChange, error) {
	query := `
		SELECT change_id, kind, actor, subject, detail, changed_at
		FROM policy_changes
		ORDER BY changed_at ASC
	`
	return s.queryChanges(ctx, query)
}

func (s *PolicyChangeStore) queryChanges(ctx context.Context, query string, args ...any) ([]*domain.PolicyChange, error) {
	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query policy changes: %w", err)
	}
	defer rows.Close()

	var result []*domain.PolicyChange
	for rows.Next() {
		var c domain.PolicyChange
		if err := rows.Scan(&c.ChangeID, &c.Kind, &c.Actor, &c.Subject, &c.Detail, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan policy change: %w", err)
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}
