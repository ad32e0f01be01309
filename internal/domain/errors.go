package domain

import "errors"

// Terminal operation errors. Every failure leaves state fully unchanged;
// callers decide whether to resubmit.
var (
	// ErrInvalidAddress is returned when sender or recipient is the null identity.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrBlacklisted is returned when either party of a transfer is blacklisted.
	ErrBlacklisted = errors.New("address is blacklisted")

	// ErrTradingNotEnabled is returned when trading is disabled and neither
	// party is fee-excluded.
	ErrTradingNotEnabled = errors.New("trading not enabled")

	// ErrExceedsMaxTransaction is returned when the amount breaks the
	// per-transaction cap.
	ErrExceedsMaxTransaction = errors.New("amount exceeds max transaction")

	// ErrExceedsMaxWallet is returned when the recipient wallet would break
	// the wallet-size cap.
	ErrExceedsMaxWallet = errors.New("recipient would exceed max wallet size")

	// ErrCooldownActive is returned when the sender traded within the
	// cooldown window.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrInsufficientAllowance is returned by TransferFrom when the spender
	// allowance does not cover the full requested amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInsufficientBalance is returned by the ledger when the sender
	// balance does not cover a debit.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidConfiguration is returned when a policy update violates a
	// hard bound, or when an effective fee would exceed the amount.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrAlreadyEnabled is returned by EnableTrading after the one-way
	// transition has happened.
	ErrAlreadyEnabled = errors.New("trading already enabled")

	// ErrUnauthorized is returned when a non-owner calls an owner-only operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPaused is returned by both transfer entry points while the pause
	// gate is engaged.
	ErrPaused = errors.New("transfers paused")

	// ErrReentrantCall is returned when a transfer is invoked while another
	// one is still in flight on the same orchestrator.
	ErrReentrantCall = errors.New("reentrant call rejected")
)
