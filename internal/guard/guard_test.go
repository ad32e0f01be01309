package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"tokengate/internal/domain"
	"tokengate/internal/ledger"
	"tokengate/internal/policy"
)

var (
	owner   = domain.Address{0x01}
	alice   = domain.Address{0xa1}
	bob     = domain.Address{0xb0}
	mallory = domain.Address{0xbd}
)

type fixture struct {
	reg   *policy.Registry
	led   *ledger.Memory
	guard *Guard
	clock *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(variant policy.BlacklistPolicy) *fixture {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	reg := policy.NewRegistry(policy.Options{
		Owner: owner,
		Fees:  domain.FeeSchedule{LiquidityPct: 2, MarketingPct: 2, BurnPct: 1},
		Limits: domain.Limits{
			MaxTransaction: uint256.NewInt(1_000_000),
			MaxWallet:      uint256.NewInt(5_000_000),
			Cooldown:       30 * time.Second,
		},
		Variant: variant,
		Now:     clock.now,
	})
	led := ledger.NewMemory(map[domain.Address]*uint256.Int{
		alice: uint256.NewInt(10_000_000),
		bob:   uint256.NewInt(1_000_000),
	})
	return &fixture{
		reg:   reg,
		led:   led,
		guard: New(reg, led, clock.now),
		clock: clock,
	}
}

func TestCheckInvalidAddress(t *testing.T) {
	f := newFixture(policy.BlacklistPolicy{})

	_, err := f.guard.Check(context.Background(), domain.ZeroAddress, bob, uint256.NewInt(1))
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Errorf("zero sender: expected ErrInvalidAddress, got %v", err)
	}
	_, err = f.guard.Check(context.Background(), alice, domain.ZeroAddress, uint256.NewInt(1))
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Errorf("zero recipient: expected ErrInvalidAddress, got %v", err)
	}
}

func TestCheckBlacklistAbsolutePrecedence(t *testing.T) {
	f := newFixture(policy.BlacklistPolicy{})
	ctx := context.Background()

	// Blacklisted AND fee-excluded, trading enabled: still rejected.
	if err := f.reg.EnableTrading(owner); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.SetBlacklisted(owner, mallory, true); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.SetFeeExcluded(owner, mallory, true); err != nil {
		t.Fatal(err)
	}

	_, err := f.guard.Check(ctx, mallory, bob, uint256.NewInt(1))
	if !errors.Is(err, domain.ErrBlacklisted) {
		t.Errorf("blacklisted sender: expected ErrBlacklisted, got %v", err)
	}
	_, err = f.guard.Check(ctx, alice, mallory, uint256.NewInt(1))
	if !errors.Is(err, domain.ErrBlacklisted) {
		t.Errorf("blacklisted recipient: expected ErrBlacklisted, got %v", err)
	}
}

func TestCheckBlacklistFeatureGatedVariant(t *testing.T) {
	f := newFixture(policy.BlacklistPolicy{EnforceOnlyWhenEnabled: true})
	ctx := context.Background()

	if err := f.reg.EnableTrading(owner); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.SetBlacklisted(owner, mallory, true); err != nil {
		t.Fatal(err)
	}

	// Toggle off: stored flag is ignored in this variant.
	if _, err := f.guard.Check(ctx, mallory, bob, uint256.NewInt(1)); err != nil {
		t.Errorf("gated variant with toggle off: expected pass, got %v", err)
	}

	if err := f.reg.SetFeatureFlag(owner, "blacklist", true); err != nil {
		t.Fatal(err)
	}
	_, err := f.guard.Check(ctx, mallory, bob, uint256.NewInt(1))
	if !errors.Is(err, domain.ErrBlacklisted) {
		t.Errorf("gated variant with toggle on: expected ErrBlacklisted, got %v", err)
	}
}

func TestCheckTradingGate(t *testing.T) {
	f := newFixture(policy.BlacklistPolicy{})
	ctx := context.Background()

	_, err := f.guard.Check(ctx, alice, bob, uint256.NewInt(1))
	if !errors.Is(err, domain.ErrTradingNotEnabled) {
		t.Fatalf("trading disabled: expected ErrTradingNotEnabled, got %v", err)
	}

	// Fee-excluded sender bypasses the gate.
	if err := f.reg.SetFeeExcluded(owner, alice, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.guard.Check(ctx, alice, bob, uint256.NewInt(1)); err != nil {
		t.Errorf("excluded sender: expected pass, got %v", err)
	}

	// Same for the recipient side.
	if err := f.reg.SetFeeExcluded(owner, alice, false); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.SetFeeExcluded(owner, bob, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.guard.Check(ctx, alice, bob, uint256.NewInt(1)); err != nil {
		t.Errorf("excluded recipient: expected pass, got %v", err)
	}
}

func TestCheckAntiWhaleCaps(t *testing.T) {
	f := newFixture(policy.BlacklistPolicy{})
	ctx := context.Background()

	if err := f.reg.EnableTrading(owner); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.SetFeatureFlag(owner, "anti_whale", true); err != nil {
		t.Fatal(err)
	}

	_, err := f.guard.Check(ctx, alice, bob, uint256.NewInt(1_000_001))
	if !errors.Is(err, domain.ErrExceedsMaxTransaction) {
		t.Errorf("over maxTx: expected ErrExceedsMaxTransaction, got %v", err)
	}

	// At the cap is allowed.
	if _, err := f.guard.Check(ctx, alice, bob, uint256.NewInt(1_000_000)); err != nil {
		t.Errorf("at maxTx: expected pass, got %v", err)
	}

	// bob holds 1_000_000; wallet cap is 5_000_000. Ten transfers of
	// 500_000 would pass individually; a single one leaving bob above the
	// cap must not.
	if err := f.reg.SetLimits(owner, domain.Limits{
		MaxTransaction: uint256.NewInt(1_000_000),
		MaxWallet:      uint256.NewInt(1_400_000),
		Cooldown:       30 * time.Second,
	}); err != nil {
		t.Fatal(err)
	}
	_, err = f.guard.Check(ctx, alice, bob, uint256.NewInt(400_001))
	if !errors.Is(err, domain.ErrExceedsMaxWallet) {
		t.Errorf("over maxWallet: expected ErrExceedsMaxWallet, got %v", err)
	}
	if _, err := f.guard.Check(ctx, alice, bob, uint256.NewInt(400_000)); err != nil {
		t.Errorf("at maxWallet: expected pass, got %v", err)
	}
}

func TestCheckCooldown(t *testing.T) {
	f := newFixture(policy.BlacklistPolicy{})
	ctx := context.Background()

	if err := f.reg.EnableTrading(owner); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.SetFeatureFlag(owner, "cooldown", true); err != nil {
		t.Fatal(err)
	}

	clearance, err := f.guard.Check(ctx, alice, bob, uint256.NewInt(100))
	if err != nil {
		t.Fatalf("first check failed: %v", err)
	}
	if !clearance.TouchCooldown {
		t.Fatal("cooldown evaluation must request a timestamp commit")
	}

	// The guard itself never writes the timestamp; only a commit does.
	if !f.reg.LastTrade(alice).IsZero() {
		t.Fatal("guard must not persist the trade timestamp")
	}
	f.reg.CommitTradeTimestamp(alice, clearance.TradeTime)

	_, err = f.guard.Check(ctx, alice, bob, uint256.NewInt(100))
	if !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("within window: expected ErrCooldownActive, got %v", err)
	}

	f.clock.advance(30 * time.Second)
	if _, err := f.guard.Check(ctx, alice, bob, uint256.NewInt(100)); err != nil {
		t.Errorf("after window: expected pass, got %v", err)
	}

	// Fee-excluded senders skip the cooldown entirely.
	if err := f.reg.SetFeeExcluded(owner, alice, true); err != nil {
		t.Fatal(err)
	}
	clearance, err = f.guard.Check(ctx, alice, bob, uint256.NewInt(100))
	if err != nil {
		t.Fatalf("excluded sender check failed: %v", err)
	}
	if clearance.TouchCooldown {
		t.Error("excluded sender must not touch the cooldown timestamp")
	}
}
