package cmd

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/voicebot/core/config"
	coretelegram "github.com/m3rciful/voicebot/core/telegram"
)

type fakeConfig struct{ core *coreconfig.Config }

func (f fakeConfig) CoreConfig() *coreconfig.Config { return f.core }

type fakeApp struct{ opts coretelegram.RunOptions }

func (a fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, nil }

func TestRunBoundsStopHook(t *testing.T) {
	t.Setenv("TEST_VOICEBOT_CONFIG", "from-env.yaml")

	var (
		loadedPath  string
		started     bool
		stopBounded bool
		loggerDone  bool
	)
	app := fakeApp{opts: coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error {
			started = true
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			deadline, ok := ctx.Deadline()
			stopBounded = ok && time.Until(deadline) <= time.Second
			return nil
		},
	}}

	err := Run(Options[fakeConfig]{
		ConfigEnvVar:      "TEST_VOICEBOT_CONFIG",
		DefaultConfigPath: "unused.yaml",
		StopTimeout:       time.Second,
		LoadConfig: func(path string) (fakeConfig, error) {
			loadedPath = path
			return fakeConfig{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(fakeConfig) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error {
			loggerDone = true
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return opts.OnStop(context.WithoutCancel(ctx), coretelegram.Runtime{})
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if loadedPath != "from-env.yaml" {
		t.Fatalf("env path must win over the default, got %q", loadedPath)
	}
	if !started {
		t.Fatalf("app OnStart was not called")
	}
	if !stopBounded {
		t.Fatalf("OnStop must run with the stop timeout")
	}
	if !loggerDone {
		t.Fatalf("logger shutdown must run on exit")
	}
}

func TestRunRejectsConfigWithoutCore(t *testing.T) {
	bootstrapped := false
	err := Run(Options[fakeConfig]{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        func(string) (fakeConfig, error) { return fakeConfig{}, nil },
		Bootstrap: func(fakeConfig) (TelegramApp, error) {
			bootstrapped = true
			return fakeApp{}, nil
		},
	})
	if err == nil || bootstrapped {
		t.Fatalf("config without core section must fail before bootstrap, err=%v", err)
	}
}

func TestRunPropagatesStartError(t *testing.T) {
	boom := errors.New("db unreachable")
	app := fakeApp{opts: coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { return boom },
	}}
	err := Run(Options[fakeConfig]{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        func(string) (fakeConfig, error) { return fakeConfig{core: &coreconfig.Config{}}, nil },
		Bootstrap:         func(fakeConfig) (TelegramApp, error) { return app, nil },
		ShutdownLogger:    func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			return opts.OnStart(ctx, coretelegram.Runtime{})
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
}

func TestConfigPathNeedsSource(t *testing.T) {
	t.Setenv("TEST_VOICEBOT_EMPTY", "")
	if _, err := configPath("TEST_VOICEBOT_EMPTY", ""); err == nil {
		t.Fatalf("missing env and default must fail")
	}
	got, err := configPath("TEST_VOICEBOT_EMPTY", "config.yaml")
	if err != nil || got != "config.yaml" {
		t.Fatalf("expected default path, got %q %v", got, err)
	}
}

func TestSignalContextRecordsSignal(t *testing.T) {
	ctx, stop := signalContext([]os.Signal{syscall.SIGUSR1})
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("context not cancelled by signal")
	}
	var sigErr signalError
	if !errors.As(context.Cause(ctx), &sigErr) || sigErr.sig != syscall.SIGUSR1 {
		t.Fatalf("expected SIGUSR1 cause, got %v", context.Cause(ctx))
	}
}
