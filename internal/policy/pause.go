package policy

import (
	"sync/atomic"
	"time"

	"tokengate/internal/domain"
	"tokengate/internal/events"
)

// Gate is the pause capability consumed by the transfer entry points.
// Pause-flag storage itself is outside the core; PauseSwitch is the
// default in-process implementation.
type Gate interface {
	Paused() bool
}

// PauseSwitch is an owner-gated pause flag. While engaged, both transfer
// entry points fail unconditionally, independent of guard logic.
type PauseSwitch struct {
	owner  domain.Address
	paused atomic.Bool
	sink   events.Sink
}

// NewPauseSwitch creates a disengaged pause switch.
func NewPauseSwitch(owner domain.Address, sink events.Sink) *PauseSwitch {
	if sink == nil {
		sink = events.Noop{}
	}
	return &PauseSwitch{owner: owner, sink: sink}
}

// Paused reports whether transfers are halted.
func (p *PauseSwitch) Paused() bool {
	return p.paused.Load()
}

// SetPaused engages or releases the gate. Owner-only.
func (p *PauseSwitch) SetPaused(caller domain.Address, paused bool) error {
	if caller != p.owner {
		return domain.ErrUnauthorized
	}
	p.paused.Store(paused)
	p.sink.Emit(events.Event{
		Kind:    events.KindPauseChanged,
		At:      time.Now(),
		Payload: events.PauseChanged{Paused: paused},
	})
	return nil
}

var _ Gate = (*PauseSwitch)(nil)
