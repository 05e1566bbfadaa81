package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/migrations"
)

// postgresReadyTimeout bounds the wait for a starting postgres container.
const postgresReadyTimeout = 30 * time.Second

// migrateURL is the golang-migrate database URL. Postgres credentials are
// escaped so passwords may contain URL delimiters.
func migrateURL(cfg Config) string {
	if cfg.IsSQLite() {
		return "sqlite://" + cfg.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(cfg Config) error {
	return RunMigrationsFS(cfg, migrations.FS)
}

// RunMigrationsFS applies every pending *.up.sql migration at the root of fsys.
func RunMigrationsFS(cfg Config, fsys fs.FS) error {
	if !cfg.IsSQLite() {
		if err := WaitForPostgres(postgresDSN(cfg), postgresReadyTimeout); err != nil {
			logger.MIG.Error("db not ready",
				slog.String("event", "db.migrate"),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	files, err := upFiles(fsys)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("driver", cfg.Driver),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(cfg))
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer m.Close()

	from := currentVersion(m)
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.Uint64("from_ver", from),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to := currentVersion(m)

	applied := pendingFiles(files, from, to)
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", len(applied)),
		slog.String("applied", strings.Join(applied, ", ")),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// currentVersion is the applied schema version, 0 on a fresh database.
func currentVersion(m *migrate.Migrate) uint64 {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return uint64(v)
}

// upFiles lists the up migrations at the root of fsys in version order.
func upFiles(fsys fs.FS) ([]string, error) {
	files, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	slices.SortFunc(files, func(a, b string) int {
		return cmpVersion(fileVersion(a), fileVersion(b))
	})
	return files, nil
}

func cmpVersion(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// fileVersion reads the numeric prefix of "000002_voices.up.sql".
func fileVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// pendingFiles are the files with a version in (from, to].
func pendingFiles(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := fileVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
