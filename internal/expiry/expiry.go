// Package expiry periodically clears validity windows that have ended and
// tells the affected users.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/internal/metrics"
)

// Expirer clears ended validity windows and reports the affected users.
type Expirer interface {
	ExpireValidity(ctx context.Context, now time.Time) ([]int64, error)
}

// Notifier delivers the expiry notice to a user.
type Notifier interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// Options configure a Sweeper.
type Options struct {
	// Schedule is a cron expression (seconds optional) or a descriptor such as "@every 10m".
	Schedule string
	// Notice is sent to every expired user; empty disables notifications.
	Notice string
	// Now overrides the clock.
	Now func() time.Time
	// Timeout bounds a single sweep; zero selects one minute.
	Timeout time.Duration
}

// Sweeper runs ExpireValidity on a cron schedule.
type Sweeper struct {
	repo   Expirer
	notify Notifier
	opts   Options
	parser cron.Parser

	mu sync.Mutex
	c  *cron.Cron
}

// New validates the schedule and returns a stopped sweeper.
func New(repo Expirer, notify Notifier, opts Options) (*Sweeper, error) {
	if repo == nil {
		return nil, errors.New("expiry: nil repository")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	opts.Schedule = strings.TrimSpace(opts.Schedule)
	s := &Sweeper{
		repo:   repo,
		notify: notify,
		opts:   opts,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	if _, err := s.parser.Parse(opts.Schedule); err != nil {
		return nil, fmt.Errorf("expiry: invalid schedule %q: %w", opts.Schedule, err)
	}
	return s, nil
}

// Start begins triggering sweeps. Calling Start twice is a no-op.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	c := cron.New(cron.WithParser(s.parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.opts.Schedule, s.tick); err != nil {
		return fmt.Errorf("expiry: schedule: %w", err)
	}
	c.Start()
	s.c = c
	logger.EXPIRY.Info("sweeper started",
		slog.String("event", "expiry.start"),
		slog.String("schedule", s.opts.Schedule),
	)
	return nil
}

// Stop halts triggering and waits for a running sweep, or for ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	logger.EXPIRY.Info("sweeper stopped", slog.String("event", "expiry.stop"))
}

func (s *Sweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	if _, err := s.SweepOnce(ctx); err != nil {
		logger.EXPIRY.Error("sweep failed",
			slog.String("event", "expiry.sweep"),
			slog.String("err", err.Error()),
		)
	}
}

// SweepOnce clears every window that ended by now and notifies the users.
// Notification failures are logged and do not fail the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]int64, error) {
	start := time.Now()
	ids, err := s.repo.ExpireValidity(ctx, s.opts.Now())
	if err != nil {
		return nil, err
	}
	metrics.ValidityExpiredTotal.Add(float64(len(ids)))

	var failed int
	if s.notify != nil && s.opts.Notice != "" {
		for _, id := range ids {
			if err := s.notify.Send(ctx, id, s.opts.Notice); err != nil {
				failed++
				logger.EXPIRY.Debug("notice failed",
					slog.String("event", "expiry.notify"),
					slog.Int64("target_id", id),
					slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				)
			}
		}
	}

	level := slog.LevelDebug
	if len(ids) > 0 {
		level = slog.LevelInfo
	}
	logger.EXPIRY.LogAttrs(ctx, level, "sweep done",
		slog.String("event", "expiry.sweep"),
		slog.Int("expired", len(ids)),
		logger.IDPreview("expired_ids", ids, 10),
		slog.Int("notify_failed", failed),
		slog.Duration("duration", logger.Took(start)),
	)
	return ids, nil
}
