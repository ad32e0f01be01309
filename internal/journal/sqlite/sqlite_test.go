package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tokengate/internal/domain"
	"tokengate/internal/journal"
)

func setupDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteTransferStoreRoundTrip(t *testing.T) {
	db := setupDB(t)
	store := NewTransferStore(db)
	ctx := context.Background()

	rec := &domain.TransferRecord{
		TransferID:       "tx1",
		Sender:           "addrA",
		Recipient:        "addrB",
		Amount:           "100000",
		NetAmount:        "95000",
		TotalFee:         "5000",
		Reflection:       "0",
		Liquidity:        "2000",
		Marketing:        "2000",
		Burned:           "1000",
		RatePct:          5,
		SurchargeApplied: true,
		ExecutedAt:       1_700_000_000_000,
	}

	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "tx1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.NetAmount != "95000" || !got.SurchargeApplied || got.RatePct != 5 {
		t.Errorf("record mismatch: %+v", got)
	}

	if err := store.Insert(ctx, rec); !errors.Is(err, journal.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteTransferStoreQueries(t *testing.T) {
	db := setupDB(t)
	store := NewTransferStore(db)
	ctx := context.Background()

	records := []*domain.TransferRecord{
		{TransferID: "t1", Sender: "a", Recipient: "b", Amount: "1", NetAmount: "1", TotalFee: "0", ExecutedAt: 3000},
		{TransferID: "t2", Sender: "b", Recipient: "c", Amount: "1", NetAmount: "1", TotalFee: "0", ExecutedAt: 1000},
		{TransferID: "t3", Sender: "c", Recipient: "a", Amount: "1", NetAmount: "1", TotalFee: "0", ExecutedAt: 2000},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	byAccount, err := store.GetByAccount(ctx, "a")
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if len(byAccount) != 2 || byAccount[0].TransferID != "t3" {
		t.Errorf("GetByAccount(a) = %d records, first %s", len(byAccount), byAccount[0].TransferID)
	}

	byRange, err := store.GetByTimeRange(ctx, 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(byRange) != 2 {
		t.Errorf("expected 2 records in range, got %d", len(byRange))
	}
}

func TestSQLitePolicyChangeStore(t *testing.T) {
	db := setupDB(t)
	store := NewPolicyChangeStore(db)
	ctx := context.Background()

	changes := []*domain.PolicyChange{
		{ChangeID: "c1", Kind: domain.PolicyChangeFees, Actor: "owner", Detail: `{"after":[0,2,2,1]}`, ChangedAt: 2000},
		{ChangeID: "c2", Kind: domain.PolicyChangeTrading, Actor: "owner", ChangedAt: 1000},
	}
	for _, c := range changes {
		if err := store.Insert(ctx, c); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	if err := store.Insert(ctx, changes[0]); !errors.Is(err, journal.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	fees, err := store.GetByKind(ctx, domain.PolicyChangeFees)
	if err != nil {
		t.Fatalf("GetByKind failed: %v", err)
	}
	if len(fees) != 1 || fees[0].Detail == "" {
		t.Errorf("GetByKind(FEES) = %+v", fees)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 || all[0].ChangeID != "c2" {
		t.Errorf("GetAll order wrong: %+v", all)
	}
}
