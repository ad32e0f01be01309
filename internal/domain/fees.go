package domain

import "fmt"

// MaxTotalFeePct is the hard ceiling on the sum of all schedule components,
// enforced at update time. The whale surcharge is applied per transfer on
// top of the schedule and may push the effective rate above this value.
const MaxTotalFeePct = 25

// WhaleSurchargePct is the flat surcharge added when a non-exempt transfer
// exceeds half of the max-transaction cap while anti-whale is enabled.
const WhaleSurchargePct = 3

// FeeSchedule holds the named whole-percent fee components.
type FeeSchedule struct {
	ReflectionPct uint64 `json:"reflection_pct" yaml:"reflection_pct"`
	LiquidityPct  uint64 `json:"liquidity_pct" yaml:"liquidity_pct"`
	MarketingPct  uint64 `json:"marketing_pct" yaml:"marketing_pct"`
	BurnPct       uint64 `json:"burn_pct" yaml:"burn_pct"`
}

// Sum returns the total of all components, ignoring toggles.
func (s FeeSchedule) Sum() uint64 {
	return s.ReflectionPct + s.LiquidityPct + s.MarketingPct + s.BurnPct
}

// Validate enforces the fee-sum ceiling. Components are bounded
// individually first so the sum cannot wrap.
func (s FeeSchedule) Validate() error {
	for _, pct := range [4]uint64{s.ReflectionPct, s.LiquidityPct, s.MarketingPct, s.BurnPct} {
		if pct > MaxTotalFeePct {
			return fmt.Errorf("%w: fee component is %d%%, ceiling is %d%%",
				ErrInvalidConfiguration, pct, MaxTotalFeePct)
		}
	}
	if sum := s.Sum(); sum > MaxTotalFeePct {
		return fmt.Errorf("%w: fee components sum to %d%%, ceiling is %d%%",
			ErrInvalidConfiguration, sum, MaxTotalFeePct)
	}
	return nil
}
