package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/voicebot/core/buildinfo"
	coreconfig "github.com/m3rciful/voicebot/core/config"
)

var (
	initOnce sync.Once

	shutdownOnce sync.Once
	shutdownErr  error

	logWriter  *lineWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newEventSampler(defaultSampleNum, defaultSampleDen)
	traceOverride bool

	// L is the base logger. Before InitLogger runs it discards everything,
	// so packages may log unconditionally (tests included).
	L *slog.Logger

	// DB logs database events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// ADMIN logs admin panel commands and conversation steps.
	ADMIN *slog.Logger
	// LEDGER logs user ledger mutations.
	LEDGER *slog.Logger
	// VOICES logs voice catalog changes.
	VOICES *slog.Logger
	// BCAST logs broadcast runs.
	BCAST *slog.Logger
	// EXPIRY logs validity expiry sweeps.
	EXPIRY *slog.Logger
)

// components binds each component logger to its component attribute.
var components = []struct {
	dst  **slog.Logger
	name string
}{
	{&DB, "db"},
	{&MIG, "db.migrate"},
	{&TG, "tg"},
	{&TWire, "tg.wire"},
	{&ADMIN, "admin"},
	{&LEDGER, "service.ledger"},
	{&VOICES, "service.voices"},
	{&BCAST, "service.broadcast"},
	{&EXPIRY, "service.expiry"},
}

func init() {
	setBase(slog.New(slog.DiscardHandler))
}

// InitLogger installs the structured logger described by cfg. Only the first
// call has an effect. It fails when the configured log file cannot be opened.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		err = install(newSetup(cfg, os.Getenv))
	})
	return err
}

func install(s setup) error {
	outputs, closers, err := openSinks(s.file)
	if err != nil {
		return err
	}
	levelVar.Set(s.level)
	debugSampler.Set(s.sampleNum, s.sampleDen)
	traceOverride = s.trace

	logClosers = closers
	logWriter = newLineWriter(outputs, 64*1024)
	base := slog.New(newStructuredHandler(handlerConfig{
		level:    &levelVar,
		writer:   logWriter,
		format:   s.format,
		keyOrder: s.keyOrder,
	}))
	slog.SetDefault(base)
	setBase(base)

	base.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Revision()),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
		slog.String("level", s.level.String()),
	)
	return nil
}

func setBase(base *slog.Logger) {
	L = base
	for _, c := range components {
		*c.dst = base.With("component", c.name)
	}
}

// Shutdown drains buffered log lines and closes the log file. Later calls
// return the result of the first.
func Shutdown() error {
	shutdownOnce.Do(func() {
		var errs []error
		if logWriter != nil {
			errs = append(errs, logWriter.Flush(), logWriter.Close())
		}
		for _, c := range logClosers {
			errs = append(errs, c.Close())
		}
		shutdownErr = errors.Join(errs...)
	})
	return shutdownErr
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent logs attrs under the given event name, resolving the logger from ctx when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns a logger tagged with the component name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether this occurrence of a high-volume debug
// event should be logged. Each event name is sampled on its own.
func ShouldSampleDebug(event string) bool {
	return traceOverride || debugSampler.Allow(event)
}
