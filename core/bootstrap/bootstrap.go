// Package bootstrap brings up the infrastructure a bot needs before it can
// serve updates: logging, the database, its schema and reference data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/voicebot/core/config"
	coredatabase "github.com/m3rciful/voicebot/core/database"
	"github.com/m3rciful/voicebot/core/logger"
)

// Options configure Run. Nil hooks select the real implementations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error

	// Seeders run in order after migrations succeed.
	Seeders []Seeder
}

func (o Options) withDefaults() Options {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	return o
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, connects to the database, applies migrations
// and runs the seeders. When a step after connecting fails the database is
// closed again.
func Run(ctx context.Context, opts Options) (_ *Result, err error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	opts = opts.withDefaults()

	if err = opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	if err = coredatabase.Normalize(&opts.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: invalid database config: %w", err)
	}
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	if err = opts.Migrate(opts.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	if err = seed(ctx, db, opts.Seeders); err != nil {
		return nil, err
	}
	return &Result{DB: db}, nil
}

func seed(ctx context.Context, db *sqlx.DB, seeders []Seeder) error {
	start := time.Now()
	ran := 0
	for i, s := range seeders {
		if s == nil {
			continue
		}
		if err := s.Seed(ctx, db); err != nil {
			return fmt.Errorf("bootstrap: seeder %s failed: %w", seederName(s, i), err)
		}
		ran++
	}
	if ran > 0 {
		logger.DB.Info("seeders applied",
			slog.String("event", "db.seed"),
			slog.Int("seeders", ran),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return nil
}
