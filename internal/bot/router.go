package bot

import (
	"context"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/handlers"
)

// CommandFunc handles one bot command.
type CommandFunc func(ctx context.Context, ev handlers.Event) error

// Router picks the handler of an update: a registered command, a button
// press or a flow event for the dispatcher. Every route runs behind the
// middleware chain.
type Router struct {
	mu          sync.RWMutex
	commands    map[string]CommandFunc
	dispatcher  *Dispatcher
	middlewares []handlers.Middleware
	log         *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]CommandFunc),
		dispatcher:  dispatcher,
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers fn for the command name, given without the slash.
func (r *Router) RegisterCommand(name string, fn CommandFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = fn
}

// Use appends a middleware to the chain. The first one registered runs first.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	h := r.resolve(c)
	if h == nil {
		return nil
	}

	return r.applyMiddlewares(h)(c)
}

func (r *Router) resolve(c telebot.Context) handlers.Handler {
	if cb := c.Callback(); cb != nil {
		data := cb.Data
		return func(c telebot.Context) error {
			ev, ok := handlers.EventFromContext(c)
			if !ok {
				return c.Respond()
			}

			notice, err := r.dispatcher.Button(handlers.RequestContext(c), ev, data)
			if respErr := c.Respond(&telebot.CallbackResponse{Text: notice}); respErr != nil {
				r.log.Debug("failed to answer button press", slog.Any("error", respErr))
			}
			return err
		}
	}

	msg := c.Message()
	if msg == nil {
		return nil
	}

	if msg.Sticker != nil {
		return r.eventHandler(r.dispatcher.Sticker)
	}

	if name := handlers.CommandName(msg.Text); name != "" {
		if fn := r.command(name); fn != nil {
			return r.eventHandler(fn)
		}
	}

	if msg.Text == "" {
		return nil
	}
	return r.eventHandler(r.dispatcher.Text)
}

func (r *Router) eventHandler(fn CommandFunc) handlers.Handler {
	return func(c telebot.Context) error {
		ev, ok := handlers.EventFromContext(c)
		if !ok {
			r.log.Warn("cannot route update without sender")
			return nil
		}
		return fn(handlers.RequestContext(c), ev)
	}
}

func (r *Router) command(name string) CommandFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name]
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	r.mu.RLock()
	middlewares := make([]handlers.Middleware, len(r.middlewares))
	copy(middlewares, r.middlewares)
	r.mu.RUnlock()

	return chain(h, middlewares...)
}

// chain wraps h so that middlewares[0] runs first.
func chain(h handlers.Handler, middlewares ...handlers.Middleware) handlers.Handler {
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}
