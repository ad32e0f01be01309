package orchestrator

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"tokengate/internal/domain"
)

// PoolReflector is the default Reflector: reflected value lands in a
// designated pool account through the normal fee leg, so conservation
// holds, and the running total is tracked for reporting.
type PoolReflector struct {
	pool domain.Address

	mu      sync.Mutex
	accrued *uint256.Int
}

// NewPoolReflector creates a reflector backed by the given pool account.
func NewPoolReflector(pool domain.Address) *PoolReflector {
	return &PoolReflector{pool: pool, accrued: new(uint256.Int)}
}

var _ Reflector = (*PoolReflector)(nil)

// PoolAccount returns the account the reflection leg credits.
func (r *PoolReflector) PoolAccount() domain.Address {
	return r.pool
}

// OnAccrual records a committed reflection leg.
func (r *PoolReflector) OnAccrual(_ context.Context, amount *uint256.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accrued.Add(r.accrued, amount)
}

// TotalAccrued returns the lifetime reflected value.
func (r *PoolReflector) TotalAccrued() *uint256.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accrued.Clone()
}
