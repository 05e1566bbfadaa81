package logger

import (
	"log/slog"
	"path/filepath"
	"slices"
	"testing"

	coreconfig "github.com/m3rciful/voicebot/core/config"
)

func noEnv(string) string { return "" }

func TestNewSetupDefaults(t *testing.T) {
	s := newSetup(nil, noEnv)
	if s.level != slog.LevelInfo || s.format != formatJSON || s.profile != "prod" {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if s.sampleNum != 1 || s.sampleDen != 50 || s.file != "" || s.trace {
		t.Fatalf("unexpected defaults %+v", s)
	}
}

func TestNewSetupFromConfig(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Logging.Profile = "Dev"
	cfg.Logging.Level = "warning"
	cfg.Logging.KeysOrder = "ts, event ,,level"
	cfg.Logging.DebugSample = "0"
	cfg.Logging.Dir = "logs"
	cfg.Logging.BotFile = "bot.log"

	s := newSetup(cfg, func(k string) string {
		if k == "LOG_TRACE" {
			return "yes"
		}
		return ""
	})
	if s.format != formatKV {
		t.Fatalf("dev profile must default to kv")
	}
	if s.level != slog.LevelWarn {
		t.Fatalf("unexpected level %v", s.level)
	}
	if !slices.Equal(s.keyOrder, []string{"ts", "event", "level"}) {
		t.Fatalf("unexpected key order %v", s.keyOrder)
	}
	if s.sampleNum != 0 || s.sampleDen != 0 {
		t.Fatalf("\"0\" must disable sampling, got %d/%d", s.sampleNum, s.sampleDen)
	}
	if s.file != filepath.Join("logs", "bot.log") || !s.trace {
		t.Fatalf("unexpected file or trace %+v", s)
	}

	cfg.Logging.Format = "json"
	cfg.Logging.DebugSample = "-3/5"
	s = newSetup(cfg, noEnv)
	if s.format != formatJSON || s.sampleNum != 1 || s.sampleDen != 50 {
		t.Fatalf("explicit json must win and a negative sample falls back, got %+v", s)
	}
}

func TestOpenSinksCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bot.log")
	writers, closers, err := openSinks(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(writers) != 2 || len(closers) != 1 {
		t.Fatalf("expected stdout and file, got %d writers", len(writers))
	}
	_ = closers[0].Close()
}
