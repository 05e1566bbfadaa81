package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/voicebot/core/bootstrap"
	"github.com/m3rciful/voicebot/core/logger"
	tg "github.com/m3rciful/voicebot/core/telegram"
	"github.com/m3rciful/voicebot/core/telegram/router"
	tgsender "github.com/m3rciful/voicebot/core/telegram/sender"
	"github.com/m3rciful/voicebot/internal/admin"
	"github.com/m3rciful/voicebot/internal/broadcast"
	"github.com/m3rciful/voicebot/internal/config"
	"github.com/m3rciful/voicebot/internal/expiry"
	"github.com/m3rciful/voicebot/internal/ledger"
	"github.com/m3rciful/voicebot/internal/metrics"
	"github.com/m3rciful/voicebot/internal/voices"
)

// drainTimeout bounds how long shutdown waits for running broadcasts.
const drainTimeout = 2 * time.Minute

type app struct {
	cfg       *config.Config
	db        *sqlx.DB
	repo      *ledger.Store
	registry  *tg.Registry
	transport *admin.Transport
	panel     *admin.Panel
	handlers  *admin.Handlers
	sweeper   *expiry.Sweeper
	metrics   *metrics.Server
}

// seedAdmins registers the configured admin ids.
func seedAdmins(ids []int64) bootstrap.Seeder {
	return bootstrap.Named("admins", func(ctx context.Context, db *sqlx.DB) error {
		store := ledger.NewStore(db)
		for _, id := range ids {
			if err := store.AddAdmin(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func newApp(cfg *config.Config) (*app, error) {
	ctx := context.Background()
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Seeders:  []bootstrap.Seeder{seedAdmins(cfg.Telegram.AdminIDs)},
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: res.DB, registry: tg.NewRegistry(), transport: admin.NewTransport()}
	a.repo = ledger.NewStore(res.DB)

	catalog, err := voices.NewManager(a.repo, voices.Config{
		Defaults:   cfg.Voices.Defaults,
		FallbackID: cfg.Voices.FallbackID,
	})
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	runner := broadcast.New(a.transport, broadcast.Options{
		SuccessPause: cfg.Broadcast.SuccessPause(),
		FailurePause: cfg.Broadcast.FailurePause(),
		RatePerSec:   cfg.Broadcast.RatePerSec,
		Burst:        cfg.Broadcast.Burst,
	})

	dbPath := ""
	if cfg.Database.IsSQLite() {
		dbPath = cfg.Database.Path
	}
	a.panel = admin.NewPanel(a.repo, catalog, runner, a.transport, admin.Options{
		DatabasePath: dbPath,
		ListLimit:    cfg.Admin.ListLimit,
	})
	a.handlers = admin.NewHandlers(a.panel, a.repo)
	if err := a.handlers.Register(a.registry); err != nil {
		_ = res.DB.Close()
		return nil, fmt.Errorf("register admin handlers: %w", err)
	}

	if cfg.Expiry.Enabled() {
		a.sweeper, err = expiry.New(a.repo, a.transport, expiry.Options{
			Schedule: cfg.Expiry.Schedule,
			Notice:   cfg.Expiry.Notice,
		})
		if err != nil {
			_ = res.DB.Close()
			return nil, err
		}
	}
	if cfg.Metrics.Listen != "" {
		a.metrics = metrics.NewServer(cfg.Metrics.Listen)
	}
	return a, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *app) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.handlers, a.registry, router.TextOptions{})...)

	return tg.RunOptions{
		Config:   &a.cfg.Config,
		Registry: a.registry,
		// One worker keeps replies to the same chat in order.
		DispatcherOptions: tgsender.Options{Workers: 1, Observer: metrics.ObserveSend},
		Middlewares:       tg.DefaultMiddlewares(&a.cfg.Config, tg.ChainOptions{OnPanic: metrics.ObservePanic}),
		Routes:            routes,
		AdminChats:        a.repo.ListAdmins,
		OnStart:           a.onStart,
		OnStop:            a.onStop,
	}, nil
}

func (a *app) onStart(ctx context.Context, rt tg.Runtime) error {
	a.transport.Bind(rt.Bot)

	if a.metrics != nil {
		a.metrics.Start()
	}
	if a.sweeper != nil {
		if err := a.sweeper.Start(); err != nil {
			return err
		}
	}

	if ids := a.cfg.Telegram.AdminIDs; len(ids) > 0 {
		notice := fmt.Sprintf("Bot @%s is online.", rt.Bot.Me.Username)
		if err := a.transport.Reply(ctx, ids[0], notice, nil); err != nil {
			logger.TG.Warn("online notice failed",
				slog.String("event", "notice.online"),
				slog.Int64("chat_id", ids[0]),
				slog.String("err", err.Error()),
			)
		}
	}
	return nil
}

// onStop runs within the runner's stop timeout, drainTimeout for this binary.
func (a *app) onStop(ctx context.Context, _ tg.Runtime) error {
	if a.sweeper != nil {
		a.sweeper.Stop(ctx)
	}

	drained := make(chan struct{})
	go func() {
		a.panel.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		logger.L.Warn("broadcast still running at shutdown",
			slog.String("component", "app"),
			slog.String("event", "shutdown.drain"),
		)
	}

	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			logger.L.Warn("metrics shutdown failed",
				slog.String("component", "app"),
				slog.String("event", "shutdown"),
				slog.String("err", err.Error()),
			)
		}
	}
	return a.db.Close()
}
