package audit

import (
	"context"
	"testing"

	"github.com/holiman/uint256"

	"tokengate/internal/domain"
	"tokengate/internal/ledger"
)

func TestCheckConserved(t *testing.T) {
	alice := domain.Address{0xa1}
	bob := domain.Address{0xb0}
	led := ledger.NewMemory(map[domain.Address]*uint256.Int{
		alice: uint256.NewInt(600),
		bob:   uint256.NewInt(400),
	})
	ctx := context.Background()

	if err := led.DebitCredit(ctx, alice, bob, uint256.NewInt(150)); err != nil {
		t.Fatal(err)
	}
	if err := led.DebitCredit(ctx, bob, domain.BurnAddress, uint256.NewInt(50)); err != nil {
		t.Fatal(err)
	}

	report, err := New(led, nil, nil).Check(ctx)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.Conserved {
		t.Errorf("expected conserved ledger, got %+v", report)
	}
	if report.BalancesSum != "1000" || report.TotalSupply != "1000" {
		t.Errorf("sums wrong: %+v", report)
	}
	if report.Accounts != 3 {
		t.Errorf("accounts = %d, want 3", report.Accounts)
	}

	burned, err := New(led, nil, nil).BurnedSupply(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if burned.Uint64() != 50 {
		t.Errorf("burned supply = %d, want 50", burned.Uint64())
	}
}
