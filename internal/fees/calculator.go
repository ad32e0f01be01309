// Package fees computes the fee split for a proposed transfer. The
// computation is pure: it reads policy state and produces a breakdown
// without touching the ledger.
package fees

import (
	"fmt"

	"github.com/holiman/uint256"

	"tokengate/internal/domain"
)

// PolicyView is the slice of the policy registry the calculator reads.
type PolicyView interface {
	Features() domain.FeatureSet
	Fees() domain.FeeSchedule
	Limits() domain.Limits
	IsFeeExcluded(domain.Address) bool
}

// Breakdown is the computed fee split for one transfer. Component legs are
// truncated independently; the uncollected truncation remainder stays with
// the sender, bounded by (components-1) base units per transfer.
type Breakdown struct {
	// Total is amount * ratePct / 100, truncating.
	Total *uint256.Int

	// Per-component legs. A nil-free zero value means the component is
	// disabled or truncated to nothing.
	Reflection *uint256.Int
	Liquidity  *uint256.Int
	Marketing  *uint256.Int
	Burn       *uint256.Int

	// RatePct is the effective percent rate, surcharge included.
	RatePct uint64
	// SurchargeApplied reports whether the whale surcharge fired.
	SurchargeApplied bool
}

// Collected returns the sum of the component legs actually routed away
// from the sender. It can be below Total by the truncation remainder.
func (b *Breakdown) Collected() *uint256.Int {
	out := new(uint256.Int)
	out.Add(out, b.Reflection)
	out.Add(out, b.Liquidity)
	out.Add(out, b.Marketing)
	out.Add(out, b.Burn)
	return out
}

// Zero reports whether no fee applies at all.
func (b *Breakdown) Zero() bool {
	return b.Total.IsZero()
}

func zeroBreakdown() *Breakdown {
	return &Breakdown{
		Total:      new(uint256.Int),
		Reflection: new(uint256.Int),
		Liquidity:  new(uint256.Int),
		Marketing:  new(uint256.Int),
		Burn:       new(uint256.Int),
	}
}

var hundred = uint256.NewInt(100)

// Compute evaluates the fee split for a proposed transfer.
//
// Exempt sender or recipient short-circuits to zero fee, which also
// bypasses the whale surcharge. Disabled components contribute nothing to
// the rate. If the effective fee would exceed the amount, Compute reports
// domain.ErrInvalidConfiguration instead of letting the net underflow.
func Compute(p PolicyView, sender, recipient domain.Address, amount *uint256.Int) (*Breakdown, error) {
	if p.IsFeeExcluded(sender) || p.IsFeeExcluded(recipient) {
		return zeroBreakdown(), nil
	}

	features := p.Features()
	schedule := p.Fees()

	// Only components whose toggle is on count toward the rate. Marketing
	// has no toggle and always counts.
	var reflPct, liqPct, burnPct uint64
	if features.Reflection {
		reflPct = schedule.ReflectionPct
	}
	if features.AutoLiquidity {
		liqPct = schedule.LiquidityPct
	}
	if features.AutoBurn {
		burnPct = schedule.BurnPct
	}
	mktPct := schedule.MarketingPct

	sumPct := reflPct + liqPct + mktPct + burnPct
	if sumPct == 0 {
		// All enabled components are zero: no fee, surcharge included.
		// Explicit guard so sub-allocation never divides by zero.
		return zeroBreakdown(), nil
	}
	ratePct := sumPct

	surcharge := false
	if features.AntiWhale {
		limits := p.Limits()
		if limits.MaxTransaction != nil {
			// Surcharge threshold is half the transaction cap, exclusive.
			threshold := new(uint256.Int).Mul(limits.MaxTransaction, uint256.NewInt(50))
			threshold.Div(threshold, hundred)
			if amount.Gt(threshold) {
				ratePct += domain.WhaleSurchargePct
				surcharge = true
			}
		}
	}

	total := new(uint256.Int).Mul(amount, uint256.NewInt(ratePct))
	total.Div(total, hundred)

	if total.Gt(amount) {
		return nil, fmt.Errorf("%w: effective fee rate %d%% exceeds transfer amount", domain.ErrInvalidConfiguration, ratePct)
	}

	b := zeroBreakdown()
	b.Total = total
	b.RatePct = ratePct
	b.SurchargeApplied = surcharge

	// Sub-allocate proportionally over the enabled schedule components.
	// The surcharge inflates the total but not the allocation weights.
	if sumPct == 0 || total.IsZero() {
		return b, nil
	}
	div := uint256.NewInt(sumPct)
	alloc := func(pct uint64) *uint256.Int {
		if pct == 0 {
			return new(uint256.Int)
		}
		out := new(uint256.Int).Mul(total, uint256.NewInt(pct))
		return out.Div(out, div)
	}
	b.Reflection = alloc(reflPct)
	b.Liquidity = alloc(liqPct)
	b.Marketing = alloc(mktPct)
	b.Burn = alloc(burnPct)

	return b, nil
}
