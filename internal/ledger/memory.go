package ledger

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"tokengate/internal/domain"
)

// Memory is an in-memory Ledger. Accounts are created implicitly on first
// balance-affecting operation and never deleted.
type Memory struct {
	mu         sync.RWMutex
	balances   map[domain.Address]*uint256.Int
	allowances map[domain.Address]map[domain.Address]*uint256.Int
	supply     *uint256.Int
}

// NewMemory creates a ledger seeded with the genesis allocations. Total
// supply is the sum of all allocations and never changes afterwards.
func NewMemory(genesis map[domain.Address]*uint256.Int) *Memory {
	m := &Memory{
		balances:   make(map[domain.Address]*uint256.Int, len(genesis)),
		allowances: make(map[domain.Address]map[domain.Address]*uint256.Int),
		supply:     new(uint256.Int),
	}
	for addr, bal := range genesis {
		if bal == nil || bal.IsZero() {
			continue
		}
		m.balances[addr] = new(uint256.Int).Set(bal)
		m.supply.Add(m.supply, bal)
	}
	return m
}

// DebitCredit atomically moves amount between accounts.
func (m *Memory) DebitCredit(_ context.Context, from, to domain.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.balances[from]
	if !ok || src.Lt(amount) {
		return domain.ErrInsufficientBalance
	}

	dst, ok := m.balances[to]
	if !ok {
		dst = new(uint256.Int)
		m.balances[to] = dst
	}

	src.Sub(src, amount)
	dst.Add(dst, amount)
	return nil
}

// BalanceOf returns the balance of addr. Unknown accounts hold zero.
func (m *Memory) BalanceOf(_ context.Context, addr domain.Address) (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if bal, ok := m.balances[addr]; ok {
		return new(uint256.Int).Set(bal), nil
	}
	return new(uint256.Int), nil
}

// TotalSupply returns the fixed supply.
func (m *Memory) TotalSupply(_ context.Context) (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(uint256.Int).Set(m.supply), nil
}

// Allowance returns what spender may move on behalf of owner.
func (m *Memory) Allowance(_ context.Context, owner, spender domain.Address) (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if byOwner, ok := m.allowances[owner]; ok {
		if a, ok := byOwner[spender]; ok {
			return new(uint256.Int).Set(a), nil
		}
	}
	return new(uint256.Int), nil
}

// Approve replaces the allowance from owner to spender.
func (m *Memory) Approve(_ context.Context, owner, spender domain.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byOwner, ok := m.allowances[owner]
	if !ok {
		byOwner = make(map[domain.Address]*uint256.Int)
		m.allowances[owner] = byOwner
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	byOwner[spender] = new(uint256.Int).Set(amount)
	return nil
}

// DecreaseAllowance lowers the allowance by amount.
func (m *Memory) DecreaseAllowance(_ context.Context, owner, spender domain.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byOwner, ok := m.allowances[owner]
	if !ok {
		return domain.ErrInsufficientAllowance
	}
	cur, ok := byOwner[spender]
	if !ok || cur.Lt(amount) {
		return domain.ErrInsufficientAllowance
	}
	cur.Sub(cur, amount)
	return nil
}

// Accounts lists every address that ever held a balance.
func (m *Memory) Accounts(_ context.Context) ([]domain.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Address, 0, len(m.balances))
	for addr := range m.balances {
		out = append(out, addr)
	}
	return out, nil
}

var _ Ledger = (*Memory)(nil)
