// Package ledger defines the balance-keeping collaborator the policy core
// depends on. The core holds the interface, never an implementation.
package ledger

import (
	"context"

	"github.com/holiman/uint256"

	"tokengate/internal/domain"
)

// Ledger owns account balances, allowances and total supply. All amounts
// are unsigned 256-bit integers; balances never go negative.
type Ledger interface {
	// DebitCredit atomically moves amount from one account to another.
	// Returns domain.ErrInsufficientBalance if the source cannot cover it.
	DebitCredit(ctx context.Context, from, to domain.Address, amount *uint256.Int) error

	// BalanceOf returns the balance of an account. Unknown accounts hold zero.
	BalanceOf(ctx context.Context, addr domain.Address) (*uint256.Int, error)

	// TotalSupply returns the fixed total supply.
	TotalSupply(ctx context.Context) (*uint256.Int, error)

	// Allowance returns what spender may move on behalf of owner.
	Allowance(ctx context.Context, owner, spender domain.Address) (*uint256.Int, error)

	// Approve replaces the allowance from owner to spender.
	Approve(ctx context.Context, owner, spender domain.Address, amount *uint256.Int) error

	// DecreaseAllowance lowers the allowance by amount. Returns
	// domain.ErrInsufficientAllowance if it would go negative.
	DecreaseAllowance(ctx context.Context, owner, spender domain.Address, amount *uint256.Int) error

	// Accounts lists every address that ever held a balance, for audits.
	Accounts(ctx context.Context) ([]domain.Address, error)
}
