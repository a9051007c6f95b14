package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/handlers"
	"github.com/Proton-105/tagmystickies-bot/internal/bot/keyboard"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

// Dispatcher routes flow events to the handler of the flow the user is in.
// The caller holds the user's lock.
type Dispatcher struct {
	session *handlers.Session
	flows   map[state.Flow]handlers.FlowHandler
	log     *slog.Logger
	mu      sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(session *handlers.Session, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		session: session,
		flows:   make(map[state.Flow]handlers.FlowHandler),
		log:     log,
	}
}

// RegisterFlow registers the handler for every state code of flow.
func (d *Dispatcher) RegisterFlow(flow state.Flow, h handlers.FlowHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flows[flow] = h
}

// Sticker dispatches a received sticker.
func (d *Dispatcher) Sticker(ctx context.Context, ev handlers.Event) error {
	snap, h, ok := d.load(ctx, ev)
	if !ok {
		return nil
	}
	return h.Sticker(ctx, ev, snap)
}

// Text dispatches plain text. Unknown slash commands are ignored.
func (d *Dispatcher) Text(ctx context.Context, ev handlers.Event) error {
	if strings.HasPrefix(strings.TrimSpace(ev.Text), "/") {
		d.log.Debug("ignoring unknown command", slog.Int64("user_id", ev.UserID), slog.String("command", handlers.CommandName(ev.Text)))
		return nil
	}

	snap, h, ok := d.load(ctx, ev)
	if !ok {
		return nil
	}
	return h.Text(ctx, ev, snap)
}

// Action dispatches a flow command (/next, /done, /multitag, /massreplace).
func (d *Dispatcher) Action(ctx context.Context, ev handlers.Event, action string) error {
	snap, h, ok := d.load(ctx, ev)
	if !ok {
		return nil
	}
	return h.Action(ctx, ev, snap, action)
}

// Button dispatches an inline button press. It returns the notice to show
// on the button, which is empty unless the button was ignored.
func (d *Dispatcher) Button(ctx context.Context, ev handlers.Event, data string) (string, error) {
	action, err := keyboard.Decode(data)
	if err != nil {
		d.log.Warn("ignoring malformed button", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		return "", nil
	}
	if !action.Actionable() {
		return "", nil
	}

	snap, ok := d.session.Fetch(ctx, ev)
	if !ok {
		return "", nil
	}

	if !accepts(snap.State.Code, action) {
		d.log.Info("stale button pressed",
			slog.Int64("user_id", ev.UserID),
			slog.Int("mode", action.Mode),
			slog.String("state", snap.State.Code.String()),
		)
		return d.session.T("callbacks.stale"), nil
	}

	if action.Action == handlers.ActionCancel {
		return "", d.session.CancelFlow(ctx, ev, snap)
	}

	h := d.handler(snap.State.Code)
	if h == nil {
		return "", nil
	}
	return "", h.Action(ctx, ev, snap, action.Action)
}

// accepts reports whether a button pressed in code still applies. Cancel
// works from any step of the flow it was sent in; other actions only from
// the exact step.
func accepts(code state.StateCode, action keyboard.ButtonAction) bool {
	if action.Mode == int(code) {
		return true
	}
	if action.Action != handlers.ActionCancel {
		return false
	}

	switch flow := code.Flow(); flow {
	case state.FlowNone, state.FlowReserved:
		return false
	default:
		return state.StateCode(action.Mode).Flow() == flow
	}
}

func (d *Dispatcher) load(ctx context.Context, ev handlers.Event) (*state.Snapshot, handlers.FlowHandler, bool) {
	snap, ok := d.session.Fetch(ctx, ev)
	if !ok {
		return nil, nil, false
	}

	h := d.handler(snap.State.Code)
	if h == nil {
		d.log.Info("no handler registered for state", slog.Int64("user_id", ev.UserID), slog.String("state", snap.State.Code.String()))
		return nil, nil, false
	}

	return snap, h, true
}

func (d *Dispatcher) handler(code state.StateCode) handlers.FlowHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.flows[code.Flow()]
}
