// Package events defines the domain notifications produced by the core and
// the sink they are delivered to. Delivery is fire-and-forget: the core
// never consumes a return value from a sink.
package events

import "time"

// Kind identifies the notification type.
type Kind string

const (
	KindFeatureToggled      Kind = "FEATURE_TOGGLED"
	KindFeesUpdated         Kind = "FEES_UPDATED"
	KindLimitsUpdated       Kind = "LIMITS_UPDATED"
	KindAddressBlacklisted  Kind = "ADDRESS_BLACKLISTED"
	KindFeeExclusionChanged Kind = "FEE_EXCLUSION_CHANGED"
	KindTradingEnabled      Kind = "TRADING_ENABLED"
	KindTokensBurned        Kind = "TOKENS_BURNED"
	KindTransferExecuted    Kind = "TRANSFER_EXECUTED"
	KindPauseChanged        Kind = "PAUSE_CHANGED"
)

// Event is the envelope broadcast to subscribers.
type Event struct {
	Kind    Kind      `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Payloads carry the relevant before/after values or flags.

type FeatureToggled struct {
	Flag    string `json:"flag"`
	Enabled bool   `json:"enabled"`
	// Known is false when the flag name did not match any feature; the
	// toggle is a no-op but the notification is still emitted.
	Known bool `json:"known"`
}

type FeesUpdated struct {
	BeforePct [4]uint64 `json:"before_pct"` // reflection, liquidity, marketing, burn
	AfterPct  [4]uint64 `json:"after_pct"`
}

type LimitsUpdated struct {
	MaxTransaction  string `json:"max_transaction"`
	MaxWallet       string `json:"max_wallet"`
	CooldownSeconds int64  `json:"cooldown_seconds"`
}

type AddressBlacklisted struct {
	Address     string `json:"address"`
	Blacklisted bool   `json:"blacklisted"`
}

type FeeExclusionChanged struct {
	Address  string `json:"address"`
	Excluded bool   `json:"excluded"`
}

type TradingEnabled struct {
	LaunchedAt time.Time `json:"launched_at"`
}

type TokensBurned struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

type TransferExecuted struct {
	TransferID string `json:"transfer_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	NetAmount  string `json:"net_amount"`
	TotalFee   string `json:"total_fee"`
}

type PauseChanged struct {
	Paused bool `json:"paused"`
}

// Sink receives notifications. Implementations must not call back into the
// core from Emit; the orchestrator rejects re-entrant transfers.
type Sink interface {
	Emit(e Event)
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) Emit(Event) {}

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
