package memory

import (
	"context"
	"errors"
	"testing"

	"tokengate/internal/domain"
	"tokengate/internal/journal"
)

func TestTransferStore_InsertAndGet(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	rec := &domain.TransferRecord{
		TransferID: "tx1",
		Sender:     "addrA",
		Recipient:  "addrB",
		Amount:     "100000",
		NetAmount:  "95000",
		TotalFee:   "5000",
		ExecutedAt: 1000,
	}

	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "tx1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.NetAmount != "95000" {
		t.Errorf("NetAmount = %s, want 95000", got.NetAmount)
	}
}

func TestTransferStore_DuplicateKey(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	rec := &domain.TransferRecord{TransferID: "tx1", Sender: "a", Recipient: "b"}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.Insert(ctx, rec)
	if !errors.Is(err, journal.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransferStore_NotFound(t *testing.T) {
	store := NewTransferStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferStore_GetByAccount(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	records := []*domain.TransferRecord{
		{TransferID: "t1", Sender: "a", Recipient: "b", ExecutedAt: 3000},
		{TransferID: "t2", Sender: "b", Recipient: "c", ExecutedAt: 1000},
		{TransferID: "t3", Sender: "c", Recipient: "a", ExecutedAt: 2000},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByAccount(ctx, "a")
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for account a, got %d", len(got))
	}
	// Ordered by executed_at ASC.
	if got[0].TransferID != "t3" || got[1].TransferID != "t1" {
		t.Errorf("wrong order: %s, %s", got[0].TransferID, got[1].TransferID)
	}
}

func TestTransferStore_GetByTimeRange(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	for i, at := range []int64{1000, 2000, 3000, 4000} {
		rec := &domain.TransferRecord{
			TransferID: string(rune('a' + i)),
			Sender:     "s",
			Recipient:  "r",
			ExecutedAt: at,
		}
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByTimeRange(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records in [2000,3000], got %d", len(got))
	}
}

func TestTransferStore_InvalidInput(t *testing.T) {
	store := NewTransferStore()

	err := store.Insert(context.Background(), &domain.TransferRecord{})
	if !errors.Is(err, journal.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty ID, got %v", err)
	}
	err = store.Insert(context.Background(), nil)
	if !errors.Is(err, journal.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil record, got %v", err)
	}
}
