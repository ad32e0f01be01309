// Package orchestrator executes transfers end to end: guard checks, fee
// computation, balance legs with rollback, cooldown commit, events and
// journaling. Execution is serialized; a call arriving while another is in
// flight is rejected as re-entrant rather than queued.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"tokengate/internal/domain"
	"tokengate/internal/events"
	"tokengate/internal/fees"
	"tokengate/internal/guard"
	"tokengate/internal/idhash"
	"tokengate/internal/journal"
	"tokengate/internal/ledger"
	"tokengate/internal/observability"
	"tokengate/internal/policy"
)

// Reflector receives the reflection fee leg. The pool account accumulates
// reflected value; OnAccrual runs after the transfer has committed.
type Reflector interface {
	PoolAccount() domain.Address
	OnAccrual(ctx context.Context, amount *uint256.Int)
}

// Options configures an Orchestrator. Ledger, Policy and Guard are
// required; everything else is optional.
type Options struct {
	Ledger ledger.Ledger
	Policy *policy.Registry
	Guard  *guard.Guard

	// Gate blocks all transfers while paused. Nil means never paused.
	Gate policy.Gate

	// Sink receives transfer notifications. Nil means discard.
	Sink events.Sink

	// Transfers is the journal destination. Writes happen after commit and
	// are best effort: a failed write is logged, never rolled back into the
	// transfer outcome. Nil disables journaling.
	Transfers journal.TransferStore

	// Reflector receives the reflection leg. Nil leaves the reflection
	// amount with the sender.
	Reflector Reflector

	Metrics *observability.Metrics

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Receipt describes a committed transfer.
type Receipt struct {
	TransferID string

	Amount     *uint256.Int
	NetAmount  *uint256.Int
	TotalFee   *uint256.Int
	Reflection *uint256.Int
	Liquidity  *uint256.Int
	Marketing  *uint256.Int
	Burned     *uint256.Int

	RatePct          uint64
	SurchargeApplied bool
	ExecutedAt       time.Time
}

// Orchestrator drives transfer execution.
type Orchestrator struct {
	mu    sync.Mutex
	nonce atomic.Uint64

	ledger    ledger.Ledger
	policy    *policy.Registry
	guard     *guard.Guard
	gate      policy.Gate
	sink      events.Sink
	transfers journal.TransferStore
	reflector Reflector
	metrics   *observability.Metrics
	now       func() time.Time
}

// New creates an Orchestrator from options.
func New(opts Options) *Orchestrator {
	sink := opts.Sink
	if sink == nil {
		sink = events.Noop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		ledger:    opts.Ledger,
		policy:    opts.Policy,
		guard:     opts.Guard,
		gate:      opts.Gate,
		sink:      sink,
		transfers: opts.Transfers,
		reflector: opts.Reflector,
		metrics:   opts.Metrics,
		now:       now,
	}
}

// Transfer moves amount from sender to recipient, applying the active
// policy. On any failure the ledger is left exactly as it was.
func (o *Orchestrator) Transfer(ctx context.Context, sender, recipient domain.Address, amount *uint256.Int) (*Receipt, error) {
	if !o.mu.TryLock() {
		return nil, domain.ErrReentrantCall
	}
	defer o.mu.Unlock()

	if o.paused() {
		o.record(domain.ErrPaused)
		return nil, domain.ErrPaused
	}

	receipt, err := o.execute(ctx, sender, recipient, amount)
	o.record(err)
	return receipt, err
}

// TransferFrom moves amount from owner to recipient on behalf of spender.
// The allowance must cover the full gross amount and is decremented by the
// gross amount. The pause gate applies before any other check.
func (o *Orchestrator) TransferFrom(ctx context.Context, spender, owner, recipient domain.Address, amount *uint256.Int) (*Receipt, error) {
	if !o.mu.TryLock() {
		return nil, domain.ErrReentrantCall
	}
	defer o.mu.Unlock()

	if o.paused() {
		o.record(domain.ErrPaused)
		return nil, domain.ErrPaused
	}

	if amount == nil {
		amount = new(uint256.Int)
	}
	allowed, err := o.ledger.Allowance(ctx, owner, spender)
	if err != nil {
		o.record(err)
		return nil, err
	}
	if allowed.Lt(amount) {
		o.record(domain.ErrInsufficientAllowance)
		return nil, domain.ErrInsufficientAllowance
	}

	// Decrement before the legs run: once execute commits, nothing
	// irreversible is left to do, so a ledger fault can never strand a
	// committed transfer with a stale allowance.
	if err := o.ledger.DecreaseAllowance(ctx, owner, spender, amount); err != nil {
		o.record(err)
		return nil, err
	}

	receipt, err := o.execute(ctx, owner, recipient, amount)
	if err != nil {
		// Nothing committed; restore the pre-decrement allowance.
		if rbErr := o.ledger.Approve(ctx, owner, spender, allowed); rbErr != nil {
			log.Printf("[orchestrator] allowance restore for %s failed: %v", owner, rbErr)
		}
		o.record(err)
		return nil, err
	}
	o.record(nil)
	return receipt, nil
}

func (o *Orchestrator) paused() bool {
	return o.gate != nil && o.gate.Paused()
}

// leg is one applied balance movement, kept for rollback.
type leg struct {
	from, to domain.Address
	amount   *uint256.Int
}

func (o *Orchestrator) execute(ctx context.Context, from, to domain.Address, amount *uint256.Int) (*Receipt, error) {
	start := o.now()

	if amount == nil {
		amount = new(uint256.Int)
	}

	clearance, err := o.guard.Check(ctx, from, to, amount)
	if err != nil {
		return nil, err
	}

	breakdown, err := fees.Compute(o.policy, from, to, amount)
	if err != nil {
		return nil, err
	}

	net := new(uint256.Int).Sub(amount, breakdown.Total)
	dest := o.policy.FeeDestinations()

	var reflectionPool domain.Address
	if o.reflector != nil {
		reflectionPool = o.reflector.PoolAccount()
	}

	planned := []leg{
		{from: from, to: to, amount: net},
		{from: from, to: reflectionPool, amount: breakdown.Reflection},
		{from: from, to: dest.Liquidity, amount: breakdown.Liquidity},
		{from: from, to: dest.Marketing, amount: breakdown.Marketing},
		{from: from, to: domain.BurnAddress, amount: breakdown.Burn},
	}

	var applied []leg
	for _, l := range planned {
		if l.amount.IsZero() || l.to.IsZero() {
			continue
		}
		if err := o.ledger.DebitCredit(ctx, l.from, l.to, l.amount); err != nil {
			// Reverse the applied legs newest first so partial state
			// never leaks.
			for i := len(applied) - 1; i >= 0; i-- {
				u := applied[i]
				if rbErr := o.ledger.DebitCredit(ctx, u.to, u.from, u.amount); rbErr != nil {
					log.Printf("[orchestrator] rollback leg %s -> %s failed: %v", u.to, u.from, rbErr)
				}
			}
			return nil, err
		}
		applied = append(applied, l)
	}

	// Everything irreversible happens only past this point.
	if clearance.TouchCooldown {
		o.policy.CommitTradeTimestamp(from, clearance.TradeTime)
	}
	if o.reflector != nil && !breakdown.Reflection.IsZero() {
		o.reflector.OnAccrual(ctx, breakdown.Reflection.Clone())
	}

	executedAt := o.now()
	nonce := o.nonce.Add(1)
	transferID := idhash.ComputeTransferID(from.String(), to.String(), amount.Dec(), nonce, executedAt.UnixMilli())

	receipt := &Receipt{
		TransferID:       transferID,
		Amount:           amount.Clone(),
		NetAmount:        net,
		TotalFee:         breakdown.Total,
		Reflection:       breakdown.Reflection,
		Liquidity:        breakdown.Liquidity,
		Marketing:        breakdown.Marketing,
		Burned:           breakdown.Burn,
		RatePct:          breakdown.RatePct,
		SurchargeApplied: breakdown.SurchargeApplied,
		ExecutedAt:       executedAt,
	}

	o.emit(receipt, from, to)
	o.journalize(ctx, receipt, from, to)

	if o.metrics != nil {
		o.metrics.TransferDuration.Observe(executedAt.Sub(start).Seconds())
		addAmount(o.metrics.TokensBurned, receipt.Burned)
		addAmount(o.metrics.FeesCollected.WithLabelValues("reflection"), receipt.Reflection)
		addAmount(o.metrics.FeesCollected.WithLabelValues("liquidity"), receipt.Liquidity)
		addAmount(o.metrics.FeesCollected.WithLabelValues("marketing"), receipt.Marketing)
		addAmount(o.metrics.FeesCollected.WithLabelValues("burn"), receipt.Burned)
	}
	return receipt, nil
}

// addAmount bumps a counter by a token amount. Amounts past the uint64
// range saturate rather than wrap; the journal keeps the exact figures.
func addAmount(c prometheus.Counter, v *uint256.Int) {
	if v.IsUint64() {
		c.Add(float64(v.Uint64()))
		return
	}
	c.Add(float64(^uint64(0)))
}

func (o *Orchestrator) emit(r *Receipt, from, to domain.Address) {
	o.sink.Emit(events.Event{
		Kind: events.KindTransferExecuted,
		At:   r.ExecutedAt,
		Payload: events.TransferExecuted{
			TransferID: r.TransferID,
			From:       from.String(),
			To:         to.String(),
			Amount:     r.Amount.Dec(),
			NetAmount:  r.NetAmount.Dec(),
			TotalFee:   r.TotalFee.Dec(),
		},
	})
	if !r.Burned.IsZero() {
		o.sink.Emit(events.Event{
			Kind: events.KindTokensBurned,
			At:   r.ExecutedAt,
			Payload: events.TokensBurned{
				From:   from.String(),
				Amount: r.Burned.Dec(),
			},
		})
	}
}

func (o *Orchestrator) journalize(ctx context.Context, r *Receipt, from, to domain.Address) {
	if o.transfers == nil {
		return
	}
	rec := &domain.TransferRecord{
		TransferID:       r.TransferID,
		Sender:           from.String(),
		Recipient:        to.String(),
		Amount:           r.Amount.Dec(),
		NetAmount:        r.NetAmount.Dec(),
		TotalFee:         r.TotalFee.Dec(),
		Reflection:       r.Reflection.Dec(),
		Liquidity:        r.Liquidity.Dec(),
		Marketing:        r.Marketing.Dec(),
		Burned:           r.Burned.Dec(),
		RatePct:          r.RatePct,
		SurchargeApplied: r.SurchargeApplied,
		ExecutedAt:       r.ExecutedAt.UnixMilli(),
	}
	if err := o.transfers.Insert(ctx, rec); err != nil {
		log.Printf("[orchestrator] journal write for %s failed: %v", r.TransferID, err)
		if o.metrics != nil {
			o.metrics.JournalWriteErrors.Inc()
		}
		return
	}
	if o.metrics != nil {
		o.metrics.JournalWrites.Inc()
	}
}

func (o *Orchestrator) record(err error) {
	if o.metrics == nil {
		return
	}
	if err == nil {
		o.metrics.TransfersExecuted.Inc()
		return
	}
	o.metrics.TransfersRejected.WithLabelValues(rejectReason(err)).Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, domain.ErrBlacklisted):
		return "blacklisted"
	case errors.Is(err, domain.ErrTradingNotEnabled):
		return "trading_not_enabled"
	case errors.Is(err, domain.ErrExceedsMaxTransaction):
		return "exceeds_max_transaction"
	case errors.Is(err, domain.ErrExceedsMaxWallet):
		return "exceeds_max_wallet"
	case errors.Is(err, domain.ErrCooldownActive):
		return "cooldown_active"
	case errors.Is(err, domain.ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, domain.ErrPaused):
		return "paused"
	case errors.Is(err, domain.ErrReentrantCall):
		return "reentrant_call"
	default:
		return "other"
	}
}
