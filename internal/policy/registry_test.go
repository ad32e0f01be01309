package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"tokengate/internal/domain"
	"tokengate/internal/events"
)

var (
	owner    = domain.Address{0x01}
	stranger = domain.Address{0x02}
	mallory  = domain.Address{0xbd}
)

// captureSink records emitted events for assertions.
type captureSink struct {
	events []events.Event
}

func (c *captureSink) Emit(e events.Event) { c.events = append(c.events, e) }

func (c *captureSink) last() *events.Event {
	if len(c.events) == 0 {
		return nil
	}
	return &c.events[len(c.events)-1]
}

func newTestRegistry(variant BlacklistPolicy, sink events.Sink) *Registry {
	return NewRegistry(Options{
		Owner: owner,
		Fees:  domain.FeeSchedule{LiquidityPct: 2, MarketingPct: 2, BurnPct: 1},
		Limits: domain.Limits{
			MaxTransaction: uint256.NewInt(1_000_000),
			MaxWallet:      uint256.NewInt(5_000_000),
			Cooldown:       30 * time.Second,
		},
		Variant: variant,
		Sink:    sink,
	})
}

func TestSetFeesCeiling(t *testing.T) {
	r := newTestRegistry(BlacklistPolicy{}, nil)

	err := r.SetFees(owner, domain.FeeSchedule{LiquidityPct: 10, MarketingPct: 10, BurnPct: 10})
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for sum 30, got %v", err)
	}

	// Prior schedule must remain active and queryable.
	got := r.Fees()
	want := domain.FeeSchedule{LiquidityPct: 2, MarketingPct: 2, BurnPct: 1}
	if got != want {
		t.Errorf("schedule after rejected update = %+v, want %+v", got, want)
	}

	// A valid replacement goes through atomically.
	if err := r.SetFees(owner, domain.FeeSchedule{ReflectionPct: 5, BurnPct: 5}); err != nil {
		t.Fatalf("SetFees failed: %v", err)
	}
	if got := r.Fees(); got.ReflectionPct != 5 || got.LiquidityPct != 0 {
		t.Errorf("schedule not atomically replaced: %+v", got)
	}
}

func TestSetFeesUnauthorized(t *testing.T) {
	r := newTestRegistry(BlacklistPolicy{}, nil)

	err := r.SetFees(stranger, domain.FeeSchedule{BurnPct: 1})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSetFeatureFlagUnknownIsNoop(t *testing.T) {
	sink := &captureSink{}
	r := newTestRegistry(BlacklistPolicy{}, sink)

	before := r.Features()
	if err := r.SetFeatureFlag(owner, "definitely_not_a_feature", true); err != nil {
		t.Fatalf("unknown flag must not error: %v", err)
	}
	if r.Features() != before {
		t.Error("unknown flag must leave features unchanged")
	}

	// The toggle notification fires regardless of the match.
	e := sink.last()
	if e == nil || e.Kind != events.KindFeatureToggled {
		t.Fatalf("expected FEATURE_TOGGLED event, got %+v", e)
	}
	if p := e.Payload.(events.FeatureToggled); p.Known {
		t.Error("unknown flag event must carry Known=false")
	}
}

func TestSetFeatureFlagKnown(t *testing.T) {
	r := newTestRegistry(BlacklistPolicy{}, nil)

	if err := r.SetFeatureFlag(owner, "anti_whale", true); err != nil {
		t.Fatalf("SetFeatureFlag failed: %v", err)
	}
	if !r.Features().AntiWhale {
		t.Error("anti_whale should be enabled")
	}

	if err := r.SetFeatureFlag(owner, "anti_whale", false); err != nil {
		t.Fatalf("SetFeatureFlag failed: %v", err)
	}
	if r.Features().AntiWhale {
		t.Error("anti_whale should be disabled again")
	}
}

func TestEnableTradingOneWay(t *testing.T) {
	r := newTestRegistry(BlacklistPolicy{}, nil)

	if r.Trading().Enabled {
		t.Fatal("trading must start disabled")
	}

	if err := r.EnableTrading(owner); err != nil {
		t.Fatalf("EnableTrading failed: %v", err)
	}
	state := r.Trading()
	if !state.Enabled || state.LaunchedAt.IsZero() {
		t.Errorf("trading state after enable = %+v", state)
	}

	err := r.EnableTrading(owner)
	if !errors.Is(err, domain.ErrAlreadyEnabled) {
		t.Errorf("second enable: expected ErrAlreadyEnabled, got %v", err)
	}
	if !r.Trading().Enabled {
		t.Error("trading state must never revert")
	}
}

func TestBlacklistDedupVariant(t *testing.T) {
	r := newTestRegistry(BlacklistPolicy{DedupHistory: true}, nil)

	for i := 0; i < 3; i++ {
		if err := r.SetBlacklisted(owner, mallory, true); err != nil {
			t.Fatalf("SetBlacklisted failed: %v", err)
		}
	}
	if got := len(r.BlacklistHistory()); got != 1 {
		t.Errorf("history length = %d, want 1 (deduped)", got)
	}

	// Unblacklisting clears the flag but keeps history.
	if err := r.SetBlacklisted(owner, mallory, false); err != nil {
		t.Fatalf("SetBlacklisted failed: %v", err)
	}
	if r.IsBlacklisted(mallory) {
		t.Error("flag should be cleared")
	}
	if got := len(r.BlacklistHistory()); got != 1 {
		t.Errorf("history must never shrink, got %d", got)
	}
}

func TestBlacklistFeatureGatedVariant(t *testing.T) {
	r := newTestRegistry(BlacklistPolicy{RequireFeatureForMutation: true}, nil)

	err := r.SetBlacklisted(owner, mallory, true)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected mutation to require the feature toggle, got %v", err)
	}

	if err := r.SetFeatureFlag(owner, "blacklist", true); err != nil {
		t.Fatalf("SetFeatureFlag failed: %v", err)
	}
	if err := r.SetBlacklisted(owner, mallory, true); err != nil {
		t.Fatalf("SetBlacklisted failed with feature on: %v", err)
	}

	// No dedup in this variant: repeated blacklisting appends again.
	if err := r.SetBlacklisted(owner, mallory, true); err != nil {
		t.Fatalf("SetBlacklisted failed: %v", err)
	}
	if got := len(r.BlacklistHistory()); got != 2 {
		t.Errorf("history length = %d, want 2 (no dedup)", got)
	}
}

func TestSetLimits(t *testing.T) {
	r := newTestRegistry(BlacklistPolicy{}, nil)

	limits := domain.Limits{
		MaxTransaction: uint256.NewInt(42),
		MaxWallet:      uint256.NewInt(84),
		Cooldown:       time.Minute,
	}
	if err := r.SetLimits(owner, limits); err != nil {
		t.Fatalf("SetLimits failed: %v", err)
	}

	got := r.Limits()
	if !got.MaxTransaction.Eq(uint256.NewInt(42)) || got.Cooldown != time.Minute {
		t.Errorf("limits not applied: %+v", got)
	}

	// Returned limits are copies; mutating them must not affect the registry.
	got.MaxTransaction.SetUint64(7)
	if !r.Limits().MaxTransaction.Eq(uint256.NewInt(42)) {
		t.Error("Limits() must return a deep copy")
	}
}

func TestFeeExclusion(t *testing.T) {
	r := newTestRegistry(BlacklistPolicy{}, nil)

	if r.IsFeeExcluded(stranger) {
		t.Fatal("addresses start non-excluded")
	}
	if err := r.SetFeeExcluded(owner, stranger, true); err != nil {
		t.Fatalf("SetFeeExcluded failed: %v", err)
	}
	if !r.IsFeeExcluded(stranger) {
		t.Error("exclusion flag should be set")
	}
	if err := r.SetFeeExcluded(owner, stranger, false); err != nil {
		t.Fatalf("SetFeeExcluded failed: %v", err)
	}
	if r.IsFeeExcluded(stranger) {
		t.Error("exclusion flag should be cleared")
	}
}

func TestPauseSwitch(t *testing.T) {
	p := NewPauseSwitch(owner, nil)

	if p.Paused() {
		t.Fatal("switch starts released")
	}
	if err := p.SetPaused(stranger, true); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := p.SetPaused(owner, true); err != nil {
		t.Fatalf("SetPaused failed: %v", err)
	}
	if !p.Paused() {
		t.Error("switch should be engaged")
	}
}
