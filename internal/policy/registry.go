// Package policy holds the mutable anti-abuse configuration: feature
// toggles, fee schedule, limits, blacklist and exclusion registries, and
// the one-way trading lifecycle. All mutation goes through owner-gated
// operations; readers get copies, never aliases.
package policy

import (
	"sync"
	"time"

	"tokengate/internal/domain"
	"tokengate/internal/events"
)

// BlacklistPolicy selects between the two historical blacklist behaviors.
// Both are supported as configuration rather than guessing a single
// intended one.
type BlacklistPolicy struct {
	// EnforceOnlyWhenEnabled gates the transfer-path blacklist check on the
	// blacklist feature toggle. When false the check is unconditional on
	// stored flags.
	EnforceOnlyWhenEnabled bool

	// DedupHistory appends an address to the historical list only the
	// first time it is blacklisted.
	DedupHistory bool

	// RequireFeatureForMutation makes SetBlacklisted fail unless the
	// blacklist feature toggle is enabled.
	RequireFeatureForMutation bool
}

// Destinations are the fee routing targets. The burn sink is fixed
// (domain.BurnAddress) and not configurable.
type Destinations struct {
	Liquidity domain.Address
	Marketing domain.Address
}

// Options configures a Registry.
type Options struct {
	Owner        domain.Address
	Features     domain.FeatureSet
	Fees         domain.FeeSchedule
	Limits       domain.Limits
	Destinations Destinations
	Variant      BlacklistPolicy

	// FeeExcluded seeds the exclusion registry (owner, treasury and the
	// marketing destination at initialization, typically).
	FeeExcluded []domain.Address

	// Sink receives policy notifications. Nil means discard.
	Sink events.Sink

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Registry is the policy store. A single Registry instance is shared by
// reference across the guard, calculator and orchestrator; there is no
// ambient global.
type Registry struct {
	mu sync.RWMutex

	owner        domain.Address
	features     domain.FeatureSet
	fees         domain.FeeSchedule
	limits       domain.Limits
	destinations Destinations
	variant      BlacklistPolicy

	trading domain.TradingState

	blacklisted      map[domain.Address]bool
	blacklistHistory []domain.Address // append-only, unblacklisting never removes
	excluded         map[domain.Address]bool
	lastTrade        map[domain.Address]time.Time

	sink events.Sink
	now  func() time.Time
}

// NewRegistry creates a registry from options.
func NewRegistry(opts Options) *Registry {
	sink := opts.Sink
	if sink == nil {
		sink = events.Noop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := &Registry{
		owner:        opts.Owner,
		features:     opts.Features,
		fees:         opts.Fees,
		limits:       opts.Limits.Clone(),
		destinations: opts.Destinations,
		variant:      opts.Variant,
		blacklisted:  make(map[domain.Address]bool),
		excluded:     make(map[domain.Address]bool),
		lastTrade:    make(map[domain.Address]time.Time),
		sink:         sink,
		now:          now,
	}
	for _, a := range opts.FeeExcluded {
		r.excluded[a] = true
	}
	return r
}

// Owner returns the policy owner address.
func (r *Registry) Owner() domain.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

func (r *Registry) requireOwner(caller domain.Address) error {
	if caller != r.owner {
		return domain.ErrUnauthorized
	}
	return nil
}

// Features returns the current toggle values.
func (r *Registry) Features() domain.FeatureSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.features
}

// Fees returns the current fee schedule.
func (r *Registry) Fees() domain.FeeSchedule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fees
}

// Limits returns a copy of the current limits.
func (r *Registry) Limits() domain.Limits {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limits.Clone()
}

// Trading returns the trading lifecycle state.
func (r *Registry) Trading() domain.TradingState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trading
}

// FeeDestinations returns the fee routing targets.
func (r *Registry) FeeDestinations() Destinations {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.destinations
}

// Variant returns the configured blacklist behavior switches.
func (r *Registry) Variant() BlacklistPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.variant
}

// IsBlacklisted reports the stored blacklist flag for addr.
func (r *Registry) IsBlacklisted(addr domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blacklisted[addr]
}

// IsFeeExcluded reports whether addr bypasses fees and the trading gate.
func (r *Registry) IsFeeExcluded(addr domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.excluded[addr]
}

// BlacklistHistory returns every address ever blacklisted, in first-seen
// order. Unblacklisting clears the flag but never shrinks this list.
func (r *Registry) BlacklistHistory() []domain.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Address, len(r.blacklistHistory))
	copy(out, r.blacklistHistory)
	return out
}

// LastTrade returns the sender's last recorded trade time. The zero time
// means the account never traded.
func (r *Registry) LastTrade(addr domain.Address) time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastTrade[addr]
}

// CommitTradeTimestamp records a trade time for addr. Called by the
// orchestrator only after every other step of a transfer has committed.
func (r *Registry) CommitTradeTimestamp(addr domain.Address, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastTrade[addr] = at
}

// SetFeatureFlag toggles a feature by name. Unrecognized names are an
// explicit no-op, but the toggle notification fires regardless.
func (r *Registry) SetFeatureFlag(caller domain.Address, name string, enabled bool) error {
	r.mu.Lock()
	if err := r.requireOwner(caller); err != nil {
		r.mu.Unlock()
		return err
	}

	flag := domain.ParseFeatureFlag(name)
	next, applied := r.features.With(flag, enabled)
	r.features = next
	r.mu.Unlock()

	r.sink.Emit(events.Event{
		Kind: events.KindFeatureToggled,
		At:   r.now(),
		Payload: events.FeatureToggled{
			Flag:    name,
			Enabled: enabled,
			Known:   applied,
		},
	})
	return nil
}

// SetFees atomically replaces the whole schedule. Rejected updates leave
// the prior schedule intact.
func (r *Registry) SetFees(caller domain.Address, fees domain.FeeSchedule) error {
	r.mu.Lock()
	if err := r.requireOwner(caller); err != nil {
		r.mu.Unlock()
		return err
	}
	if err := fees.Validate(); err != nil {
		r.mu.Unlock()
		return err
	}

	before := r.fees
	r.fees = fees
	r.mu.Unlock()

	r.sink.Emit(events.Event{
		Kind: events.KindFeesUpdated,
		At:   r.now(),
		Payload: events.FeesUpdated{
			BeforePct: [4]uint64{before.ReflectionPct, before.LiquidityPct, before.MarketingPct, before.BurnPct},
			AfterPct:  [4]uint64{fees.ReflectionPct, fees.LiquidityPct, fees.MarketingPct, fees.BurnPct},
		},
	})
	return nil
}

// SetLimits replaces the limit thresholds. No validation beyond type
// bounds; values are the caller's responsibility.
func (r *Registry) SetLimits(caller domain.Address, limits domain.Limits) error {
	r.mu.Lock()
	if err := r.requireOwner(caller); err != nil {
		r.mu.Unlock()
		return err
	}
	r.limits = limits.Clone()
	r.mu.Unlock()

	payload := events.LimitsUpdated{CooldownSeconds: int64(limits.Cooldown / time.Second)}
	if limits.MaxTransaction != nil {
		payload.MaxTransaction = limits.MaxTransaction.Dec()
	}
	if limits.MaxWallet != nil {
		payload.MaxWallet = limits.MaxWallet.Dec()
	}
	r.sink.Emit(events.Event{Kind: events.KindLimitsUpdated, At: r.now(), Payload: payload})
	return nil
}

// SetBlacklisted flips the blacklist flag for an address. Behavior of the
// history append and the feature-toggle precondition follows the
// configured BlacklistPolicy variant.
func (r *Registry) SetBlacklisted(caller, addr domain.Address, flag bool) error {
	r.mu.Lock()
	if err := r.requireOwner(caller); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.variant.RequireFeatureForMutation && !r.features.Blacklist {
		r.mu.Unlock()
		return domain.ErrInvalidConfiguration
	}

	if flag {
		if r.variant.DedupHistory {
			if !r.inHistoryLocked(addr) {
				r.blacklistHistory = append(r.blacklistHistory, addr)
			}
		} else {
			r.blacklistHistory = append(r.blacklistHistory, addr)
		}
	}
	r.blacklisted[addr] = flag
	r.mu.Unlock()

	r.sink.Emit(events.Event{
		Kind:    events.KindAddressBlacklisted,
		At:      r.now(),
		Payload: events.AddressBlacklisted{Address: addr.String(), Blacklisted: flag},
	})
	return nil
}

func (r *Registry) inHistoryLocked(addr domain.Address) bool {
	for _, a := range r.blacklistHistory {
		if a == addr {
			return true
		}
	}
	return false
}

// SetFeeExcluded flips the exclusion flag. Unconditional, no side effects
// beyond the flag itself.
func (r *Registry) SetFeeExcluded(caller, addr domain.Address, flag bool) error {
	r.mu.Lock()
	if err := r.requireOwner(caller); err != nil {
		r.mu.Unlock()
		return err
	}
	r.excluded[addr] = flag
	r.mu.Unlock()

	r.sink.Emit(events.Event{
		Kind:    events.KindFeeExclusionChanged,
		At:      r.now(),
		Payload: events.FeeExclusionChanged{Address: addr.String(), Excluded: flag},
	})
	return nil
}

// EnableTrading performs the one-way Disabled -> Enabled transition and
// records the launch timestamp. The transition never reverts.
func (r *Registry) EnableTrading(caller domain.Address) error {
	r.mu.Lock()
	if err := r.requireOwner(caller); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.trading.Enabled {
		r.mu.Unlock()
		return domain.ErrAlreadyEnabled
	}

	launched := r.now()
	r.trading = domain.TradingState{Enabled: true, LaunchedAt: launched}
	r.mu.Unlock()

	r.sink.Emit(events.Event{
		Kind:    events.KindTradingEnabled,
		At:      launched,
		Payload: events.TradingEnabled{LaunchedAt: launched},
	})
	return nil
}
