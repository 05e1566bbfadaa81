package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/voicebot/core/config"
	"github.com/m3rciful/voicebot/core/logger"
	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"
	tgsender "github.com/m3rciful/voicebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a global bot middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint (a slash command, a tele.On* constant).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// DispatcherOptions configure the outbound queue used by the send helpers.
	DispatcherOptions tgsender.Options

	Middlewares []Middleware
	Routes      []Route

	// AdminChats lists the chats that get the admin command menu. It is
	// called once after the bot is built; an error leaves only the default menu.
	AdminChats func(ctx context.Context) ([]int64, error)

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes the running bot to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, serves updates until ctx is done and then runs
// OnStop and drains the outbound queue. A cancelled ctx is a clean exit.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	bot, err := newBot(ctx, opts.Config)
	if err != nil {
		return err
	}

	dispatcher := tgsender.NewDispatcher(opts.DispatcherOptions)
	tghelpers.SetDispatcher(dispatcher)
	defer func() {
		dispatcher.Close()
		tghelpers.SetDispatcher(nil)
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	PublishMenus(ctx, bot, reg, adminChats(ctx, opts.AdminChats))

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runErr := serve(ctx, bot)

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// newBot connects to the Bot API with the configured poller. In long polling
// mode a leftover webhook is removed first, otherwise getUpdates would fail.
func newBot(ctx context.Context, cfg *coreconfig.Config) (*tele.Bot, error) {
	longPoll := LongPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)
	poller := newPoller(cfg)

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(HTTPClientOptions{LongPoll: longPoll}),
		OnError: onError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	attrs := []slog.Attr{
		slog.String("event", "mode"),
		slog.String("bot", bot.Me.Username),
		slog.Duration("duration", logger.Took(start)),
	}

	if hook, ok := poller.(*tele.Webhook); ok {
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode", append(attrs,
			slog.String("mode", "webhook"),
			slog.String("listen", hook.Listen),
			slog.String("public_url", hook.Endpoint.PublicURL),
		)...)
		return bot, nil
	}

	logger.TG.LogAttrs(ctx, slog.LevelInfo, "polling mode", append(attrs,
		slog.String("mode", "polling"),
		slog.Duration("timeout", longPoll),
	)...)
	if err := bot.RemoveWebhook(false); err != nil {
		logger.TG.Warn("failed to delete webhook",
			slog.String("event", "delete_webhook"),
			slog.String("err", err.Error()),
		)
	}
	return bot, nil
}

// onError logs handler errors and poller failures instead of telebot's
// default log.Println.
func onError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Warn(ctx, "tg", "bot.error", slog.String("err", logger.SanitizeLimit(errText(err), 256)))
}

// errText guards against telebot errors whose Error panics on a nil inner error.
func errText(err error) (text string) {
	defer func() {
		if recover() != nil {
			text = fmt.Sprintf("%T", err)
		}
	}()
	return err.Error()
}

// serve runs the update loop until ctx is done or the poller gives up.
func serve(ctx context.Context, bot *tele.Bot) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-stopped
		return ctx.Err()
	case <-stopped:
		return nil
	}
}

func adminChats(ctx context.Context, list func(context.Context) ([]int64, error)) []int64 {
	if list == nil {
		return nil
	}
	ids, err := list(ctx)
	if err != nil {
		logger.TWire.Warn("admin chats unavailable",
			slog.String("event", "register.menu.admins"),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return ids
}
