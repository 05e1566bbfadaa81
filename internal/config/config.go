// Package config loads the bot configuration: the reusable core settings plus
// the database, voice catalog, broadcast pacing, expiry and metrics sections.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/voicebot/core/config"
	coredatabase "github.com/m3rciful/voicebot/core/database"
	"github.com/m3rciful/voicebot/internal/voices"
)

// ExpiryOff disables the validity expiry sweeper.
const ExpiryOff = "off"

// VoicesConfig describes the built-in voice catalog.
type VoicesConfig struct {
	Defaults []voices.Profile `yaml:"defaults"`
	// FallbackID is used as the default voice when the catalog becomes empty.
	FallbackID string `yaml:"fallback_id" envconfig:"VOICES_FALLBACK_ID"`
}

// BroadcastConfig tunes broadcast pacing.
type BroadcastConfig struct {
	SuccessPauseMS int     `yaml:"success_pause_ms" envconfig:"BROADCAST_SUCCESS_PAUSE_MS"`
	FailurePauseMS int     `yaml:"failure_pause_ms" envconfig:"BROADCAST_FAILURE_PAUSE_MS"`
	RatePerSec     float64 `yaml:"rate_per_sec" envconfig:"BROADCAST_RATE_PER_SEC"`
	Burst          int     `yaml:"burst" envconfig:"BROADCAST_BURST"`
}

// SuccessPause returns the configured pause after a delivered message.
func (b BroadcastConfig) SuccessPause() time.Duration {
	return time.Duration(b.SuccessPauseMS) * time.Millisecond
}

// FailurePause returns the configured pause after a failed delivery.
func (b BroadcastConfig) FailurePause() time.Duration {
	return time.Duration(b.FailurePauseMS) * time.Millisecond
}

// ExpiryConfig schedules the validity expiry sweeper.
type ExpiryConfig struct {
	// Schedule is a cron expression or descriptor ("@every 10m"); "off" disables the sweeper.
	Schedule string `yaml:"schedule" envconfig:"EXPIRY_SCHEDULE"`
	Notice   string `yaml:"notice" envconfig:"EXPIRY_NOTICE"`
}

// Enabled reports whether the sweeper should run.
func (e ExpiryConfig) Enabled() bool {
	return !strings.EqualFold(strings.TrimSpace(e.Schedule), ExpiryOff)
}

// MetricsConfig configures the Prometheus listener; an empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// AdminConfig tunes the admin panel.
type AdminConfig struct {
	// ListLimit caps user pickers and the user listing.
	ListLimit int `yaml:"list_limit" envconfig:"ADMIN_LIST_LIMIT"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Voices    VoicesConfig        `yaml:"voices"`
	Broadcast BroadcastConfig     `yaml:"broadcast"`
	Expiry    ExpiryConfig        `yaml:"expiry"`
	Metrics   MetricsConfig       `yaml:"metrics"`
	Admin     AdminConfig         `yaml:"admin"`
}

// CoreConfig exposes the embedded core section to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := coredatabase.Normalize(&cfg.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if len(cfg.Voices.Defaults) == 0 {
		return fmt.Errorf("voices.defaults must list at least one voice")
	}
	for i, v := range cfg.Voices.Defaults {
		if len(strings.TrimSpace(v.ID)) < 10 {
			return fmt.Errorf("voices.defaults[%d]: id must be at least 10 characters", i)
		}
	}

	if cfg.Broadcast.SuccessPauseMS < 0 || cfg.Broadcast.FailurePauseMS < 0 {
		return fmt.Errorf("broadcast pauses must be >= 0")
	}
	if cfg.Broadcast.RatePerSec < 0 {
		return fmt.Errorf("broadcast.rate_per_sec must be >= 0")
	}

	cfg.Expiry.Schedule = strings.TrimSpace(cfg.Expiry.Schedule)
	if cfg.Expiry.Schedule == "" {
		cfg.Expiry.Schedule = "@every 10m"
	}
	if strings.TrimSpace(cfg.Expiry.Notice) == "" {
		cfg.Expiry.Notice = "⏳ Your premium validity has expired."
	}

	if cfg.Admin.ListLimit <= 0 {
		cfg.Admin.ListLimit = 50
	}
	cfg.Metrics.Listen = strings.TrimSpace(cfg.Metrics.Listen)
	return nil
}
