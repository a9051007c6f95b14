package handlers

import (
	"context"

	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

// Idle is the home state. A sticker starts single tagging and the entry
// commands start the batch and mass edit flows.
type Idle struct {
	single *Single
	batch  *Batch
	mass   *MassEdit
}

// NewIdle creates the idle state handler.
func NewIdle(single *Single, batch *Batch, mass *MassEdit) *Idle {
	return &Idle{single: single, batch: batch, mass: mass}
}

func (h *Idle) Sticker(ctx context.Context, ev Event, snap *state.Snapshot) error {
	return h.single.Start(ctx, ev, snap)
}

// Text outside a flow is not for us.
func (h *Idle) Text(context.Context, Event, *state.Snapshot) error {
	return nil
}

func (h *Idle) Action(ctx context.Context, ev Event, snap *state.Snapshot, action string) error {
	switch action {
	case ActionMultiTag:
		return h.batch.Start(ctx, ev, snap)
	case ActionMassReplace:
		return h.mass.Start(ctx, ev, snap)
	default:
		return nil
	}
}
