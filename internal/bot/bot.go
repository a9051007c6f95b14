package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/handlers"
	"github.com/Proton-105/tagmystickies-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/tagmystickies-bot/internal/errors"
	"github.com/Proton-105/tagmystickies-bot/internal/greeting"
	"github.com/Proton-105/tagmystickies-bot/internal/i18n"
	"github.com/Proton-105/tagmystickies-bot/internal/idempotency"
	"github.com/Proton-105/tagmystickies-bot/internal/middleware"
	"github.com/Proton-105/tagmystickies-bot/internal/ratelimit"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
	"github.com/Proton-105/tagmystickies-bot/pkg/config"
)

// RecordsAPI is everything the bot asks of the records service.
type RecordsAPI interface {
	handlers.Records
	handlers.Registrar
	handlers.StickerFinder
}

// StateMachine loads, saves and serializes user state.
type StateMachine interface {
	handlers.StateMachine
	UserLocker
}

// Deps are the collaborators New wires into the bot. Guard, Limiter and
// Broadcasts may be nil, which switches the matching feature off.
type Deps struct {
	Config     config.Config
	Log        *slog.Logger
	Translator i18n.Translator
	Records    RecordsAPI
	Machine    StateMachine
	Guard      *idempotency.Guard
	Limiter    ratelimit.Limiter
	Broadcasts handlers.BroadcastEnqueuer
}

// Bot wraps telebot.Bot with the routing of the tagging flows.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	tr         i18n.Translator
	router     *Router
	dispatcher *Dispatcher
	session    *handlers.Session
	messenger  *handlers.TelebotMessenger
	inline     *handlers.Inline
	errHandler *apperrors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
func New(deps Deps) (*Bot, error) {
	cfg := deps.Config
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Bot.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.String("kind", kindOf(c)), slog.Any("error", err))
		},
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.Bot.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.PollTimeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b, err := newBot(tb, deps, log)
	if err != nil {
		return nil, err
	}

	b.registerTelebotHandlers()
	return b, nil
}

// newBot wires everything except the telebot endpoints so tests can drive
// the router against an offline bot.
func newBot(tb *telebot.Bot, deps Deps, log *slog.Logger) (*Bot, error) {
	cfg := deps.Config
	tr := deps.Translator
	username := tb.Me.Username

	kb, err := handlers.NewKeyboards(keyboard.NewBuilder(keyboard.Labels{
		Cancel: tr.T("buttons.cancel"),
		Next:   tr.T("buttons.next"),
		Done:   tr.T("buttons.done"),
	}, log))
	if err != nil {
		return nil, err
	}

	messenger := handlers.NewTelebotMessenger(tb)
	hints := handlers.NewHints(tr, username, nil)
	session := handlers.NewSession(deps.Machine, messenger, tr, hints, cfg.Bot.SupportContact, log)

	single := handlers.NewSingle(session, deps.Records, kb)
	batch := handlers.NewBatch(session, deps.Records, kb)
	mass := handlers.NewMassEdit(session, deps.Records, kb)

	dispatcher := NewDispatcher(session, log)
	dispatcher.RegisterFlow(state.FlowNone, handlers.NewIdle(single, batch, mass))
	dispatcher.RegisterFlow(state.FlowSingle, single)
	dispatcher.RegisterFlow(state.FlowBatch, batch)
	dispatcher.RegisterFlow(state.FlowMassEdit, mass)

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		tr:         tr,
		router:     NewRouter(dispatcher, log),
		dispatcher: dispatcher,
		session:    session,
		messenger:  messenger,
		inline:     handlers.NewInline(deps.Records, nil, log),
		errHandler: apperrors.NewHandler(log, cfg.Sentry.Enabled),
	}

	b.setupRouter(deps, username)
	return b, nil
}

func (b *Bot) setupRouter(deps Deps, username string) {
	cfg := b.cfg

	rateLimit := middleware.NewRateLimitMiddleware(
		deps.Limiter,
		ratelimit.NewRules(cfg.RateLimit, cfg.Bot.AdminIDs),
		b.tr.T("errors.rate_limited"),
		b.log,
	)

	b.router.Use(LoggingMiddleware(b.log, cfg.State.LockTTL))
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(middleware.Idempotency(deps.Guard, b.telebot.Me.ID, b.log))
	b.router.Use(rateLimit.Handle)
	b.router.Use(middleware.Metrics)
	b.router.Use(UserLockMiddleware(deps.Machine, b.tr.T("errors.busy"), b.log))

	greetings := greeting.NewGenerator(greeting.FromCatalog(b.tr, cfg.Greeting.PartDelay), nil)
	start := handlers.NewStart(b.session, deps.Records, greetings, b.log)
	help := handlers.NewHelp(b.session, username)
	notify := handlers.NewNotify(b.session, deps.Broadcasts, cfg.Bot.AdminIDs, b.log)

	b.router.RegisterCommand(CommandStart, start.Handle)
	b.router.RegisterCommand(CommandHelp, help.Handle)
	b.router.RegisterCommand(CommandCancel, b.session.CancelCommand)
	b.router.RegisterCommand(CommandNotify, notify.Handle)

	for _, action := range []string{CommandNext, CommandDone, CommandMultiTag, CommandMassReplace} {
		b.router.RegisterCommand(action, b.flowAction(action))
	}
}

// flowAction turns a command into an action of the user's current flow.
func (b *Bot) flowAction(action string) CommandFunc {
	return func(ctx context.Context, ev handlers.Event) error {
		return b.dispatcher.Action(ctx, ev, action)
	}
}

func (b *Bot) registerTelebotHandlers() {
	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnSticker, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
	b.telebot.Handle(telebot.OnQuery, b.queryHandler())
}

// queryHandler answers inline queries. They touch no state, so they skip
// the user lock and the rate limit.
func (b *Bot) queryHandler() telebot.HandlerFunc {
	return telebot.HandlerFunc(chain(
		b.answerQuery,
		LoggingMiddleware(b.log, b.cfg.Records.Timeout),
		RecoveryMiddleware(b.log, b.errHandler),
		middleware.Metrics,
	))
}

func (b *Bot) answerQuery(c telebot.Context) error {
	q := c.Query()
	if q == nil || q.Sender == nil {
		return nil
	}

	resp := b.inline.Answer(handlers.RequestContext(c), q.Sender.ID, q.Text)
	return c.Answer(resp)
}

// Start runs the telegram bot event loop. It blocks until Stop.
func (b *Bot) Start() {
	b.log.Info("starting telegram bot", slog.String("mode", b.cfg.Bot.Mode), slog.String("username", b.telebot.Me.Username))
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Session exposes the flow plumbing for the expiry sweeper.
func (b *Bot) Session() *handlers.Session {
	return b.session
}

// Messenger exposes the message sender for background jobs.
func (b *Bot) Messenger() handlers.Messenger {
	return b.messenger
}

func kindOf(c telebot.Context) string {
	if c == nil {
		return "none"
	}
	return handlers.UpdateKind(c)
}
