package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `
telegram:
  token: "yaml-token"
  admin_ids: [111, 222]
database:
  driver: sqlite
  path: data/bot.db
voices:
  fallback_id: "fallback-voice-id"
  defaults:
    - id: "21m00Tcm4TlvDq8ikWAM"
      name: Rachel
    - id: "AZnzlk1XvdvUeBnXmlld"
broadcast:
  success_pause_ms: 10
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "yaml-token" {
		t.Fatalf("unexpected token %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AdminIDs) != 2 || cfg.Telegram.AdminIDs[0] != 111 {
		t.Fatalf("unexpected admin ids %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Telegram.RunMode != "longpoll" {
		t.Fatalf("expected longpoll run mode, got %q", cfg.Telegram.RunMode)
	}
	if !cfg.Database.IsSQLite() || cfg.Database.MaxConnections != 1 {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if len(cfg.Voices.Defaults) != 2 || cfg.Voices.Defaults[0].Name != "Rachel" {
		t.Fatalf("unexpected voices %+v", cfg.Voices.Defaults)
	}
	if cfg.Expiry.Schedule != "@every 10m" || !cfg.Expiry.Enabled() {
		t.Fatalf("unexpected expiry %+v", cfg.Expiry)
	}
	if cfg.Admin.ListLimit != 50 {
		t.Fatalf("expected list limit 50, got %d", cfg.Admin.ListLimit)
	}
	if got := cfg.Broadcast.SuccessPause().Milliseconds(); got != 10 {
		t.Fatalf("expected 10ms success pause, got %d", got)
	}
	if cfg.CoreConfig() != &cfg.Config {
		t.Fatalf("CoreConfig must expose the embedded section")
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("EXPIRY_SCHEDULE", "off")
	t.Setenv("DB_PATH", "other.db")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("env token not applied: %q", cfg.Telegram.Token)
	}
	if cfg.Expiry.Enabled() {
		t.Fatalf("expiry must be disabled")
	}
	if cfg.Database.Path != "other.db" {
		t.Fatalf("env db path not applied: %q", cfg.Database.Path)
	}
}

func TestNormalizeRejectsBadVoices(t *testing.T) {
	body := `
telegram:
  token: "t"
database:
  driver: sqlite
  path: bot.db
voices:
  defaults:
    - id: "short"
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected short default voice id to be rejected")
	}

	empty := `
telegram:
  token: "t"
database:
  driver: sqlite
  path: bot.db
`
	if _, err := Load(writeConfig(t, empty)); err == nil {
		t.Fatalf("expected empty default catalog to be rejected")
	}
}

func TestNormalizeRejectsNonPositiveAdmin(t *testing.T) {
	body := `
telegram:
  token: "t"
  admin_ids: [0]
database:
  driver: sqlite
  path: bot.db
voices:
  defaults:
    - id: "21m00Tcm4TlvDq8ikWAM"
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected admin id 0 to be rejected")
	}
}
