// Package cmd is the process entry point shared by the bot binaries: it
// resolves the config file, bootstraps the app and runs it until SIGINT or
// SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/voicebot/core/buildinfo"
	coreconfig "github.com/m3rciful/voicebot/core/config"
	"github.com/m3rciful/voicebot/core/logger"
	coretelegram "github.com/m3rciful/voicebot/core/telegram"
)

const (
	defaultConfigEnv   = "CONFIG_PATH"
	defaultStopTimeout = 15 * time.Second
)

// ConfigCarrier is an app config that embeds the core config.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the run options of a bootstrapped bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wire a concrete config type C into Run.
type Options[C ConfigCarrier] struct {
	// ConfigEnvVar names the variable holding the config path. CONFIG_PATH by default.
	ConfigEnvVar      string
	DefaultConfigPath string
	// StopTimeout bounds OnStop. 15s by default.
	StopTimeout time.Duration

	LoadConfig func(path string) (C, error)
	Bootstrap  func(cfg C) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Signals defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

// signalError is the cancel cause when the process is asked to stop.
type signalError struct{ sig os.Signal }

func (e signalError) Error() string { return "received " + e.sig.String() }

// Run loads the config, bootstraps the app and runs the bot until a stop
// signal arrives.
func Run[C ConfigCarrier](opts Options[C]) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	cfgPath, err := configPath(opts.ConfigEnvVar, opts.DefaultConfigPath)
	if err != nil {
		return err
	}

	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: load config %s: %w", cfgPath, err)
	}
	if cfg.CoreConfig() == nil {
		return fmt.Errorf("cmd: config %s has no core section", cfgPath)
	}

	startedAt := time.Now()
	application, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
		}
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	logger.Info(logger.Background(), "app", "config.loaded", slog.String("path", cfgPath))

	stopTimeout := opts.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	ctx, stop := signalContext(opts.Signals)
	defer stop()
	wrapHooks(&runOpts, startedAt, stopTimeout, func() error { return context.Cause(ctx) })

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// configPath picks the env variable first, then the default.
func configPath(envVar, fallback string) (string, error) {
	if envVar == "" {
		envVar = defaultConfigEnv
	}
	if p := os.Getenv(envVar); p != "" {
		return p, nil
	}
	if fallback == "" {
		return "", fmt.Errorf("cmd: no config path in %s and no default", envVar)
	}
	return fallback, nil
}

// wrapHooks adds the ready and shutdown events around the app hooks and bounds
// OnStop by timeout. cause reports why the run context ended.
func wrapHooks(runOpts *coretelegram.RunOptions, startedAt time.Time, timeout time.Duration, cause func() error) {
	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("version", buildinfo.Version),
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		attrs := []slog.Attr{slog.Duration("uptime", logger.Took(startedAt))}
		if err := cause(); err != nil {
			attrs = append(attrs, slog.String("cause", err.Error()))
		}
		logger.Info(ctx, "app", "shutdown", attrs...)
		if prevStop == nil {
			return nil
		}
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return prevStop(stopCtx, rt)
	}
}

// signalContext is cancelled with a signalError cause on the first stop signal.
func signalContext(signals []os.Signal) (context.Context, func()) {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		select {
		case sig := <-ch:
			cancel(signalError{sig: sig})
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(ch)
		cancel(nil)
	}
}
