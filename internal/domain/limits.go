package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Limits holds the anti-abuse thresholds. No bounds are enforced on update
// beyond type validity; that is deliberately left to the policy owner.
type Limits struct {
	// MaxTransaction caps the amount of a single transfer while anti-whale
	// is enabled. Nil means unset (no cap).
	MaxTransaction *uint256.Int

	// MaxWallet caps the recipient balance after a transfer while
	// anti-whale is enabled. Nil means unset.
	MaxWallet *uint256.Int

	// Cooldown is the minimum time between an account's successive
	// outbound transfers while the cooldown toggle is enabled.
	Cooldown time.Duration
}

// Clone returns a deep copy so callers cannot alias the registry's values.
func (l Limits) Clone() Limits {
	out := Limits{Cooldown: l.Cooldown}
	if l.MaxTransaction != nil {
		out.MaxTransaction = new(uint256.Int).Set(l.MaxTransaction)
	}
	if l.MaxWallet != nil {
		out.MaxWallet = new(uint256.Int).Set(l.MaxWallet)
	}
	return out
}

// TradingState is the one-way trading lifecycle: disabled until launch,
// enabled forever after.
type TradingState struct {
	Enabled    bool
	LaunchedAt time.Time // set exactly once on the transition
}
