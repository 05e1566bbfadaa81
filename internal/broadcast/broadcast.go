// Package broadcast fans a text message out to users one at a time.
package broadcast

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/internal/metrics"
)

const (
	// DefaultSuccessPause is slept after every delivered message.
	DefaultSuccessPause = 50 * time.Millisecond
	// DefaultFailurePause is slept after every failed delivery.
	DefaultFailurePause = 200 * time.Millisecond
)

// Sender delivers a single message; an error marks the delivery as failed.
type Sender interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// Options tunes pacing. Zero pauses select the defaults; RatePerSec <= 0 disables the limiter.
type Options struct {
	SuccessPause time.Duration
	FailurePause time.Duration
	RatePerSec   float64
	Burst        int
}

// Result summarises one run. Sent+Failed equals the number of usable recipients.
type Result struct {
	Sent    int
	Failed  int
	Skipped int
}

// Runner performs broadcasts sequentially.
type Runner struct {
	sender  Sender
	opts    Options
	limiter *rate.Limiter
	sleep   func(time.Duration)
}

// New returns a Runner delivering through sender.
func New(sender Sender, opts Options) *Runner {
	if opts.SuccessPause <= 0 {
		opts.SuccessPause = DefaultSuccessPause
	}
	if opts.FailurePause <= 0 {
		opts.FailurePause = DefaultFailurePause
	}
	r := &Runner{sender: sender, opts: opts, sleep: time.Sleep}
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return r
}

// Run delivers text to every recipient with a positive id. A failed delivery never
// stops the loop. Run blocks until the whole list has been attempted.
func (r *Runner) Run(ctx context.Context, text string, recipients []int64) Result {
	start := time.Now()
	metrics.BroadcastRunsInFlight.Inc()
	defer metrics.BroadcastRunsInFlight.Dec()

	var (
		res    Result
		failed []int64
	)
	for _, id := range recipients {
		if id <= 0 {
			res.Skipped++
			metrics.BroadcastDeliveriesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				logger.BCAST.Warn("limiter wait failed",
					slog.String("event", "broadcast.limit"),
					slog.String("err", err.Error()),
				)
			}
		}
		if err := r.sender.Send(ctx, id, text); err != nil {
			res.Failed++
			failed = append(failed, id)
			metrics.BroadcastDeliveriesTotal.WithLabelValues("failed").Inc()
			logger.BCAST.Debug("delivery failed",
				slog.String("event", "broadcast.send"),
				slog.Int64("target_id", id),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			r.sleep(r.opts.FailurePause)
			continue
		}
		res.Sent++
		metrics.BroadcastDeliveriesTotal.WithLabelValues("sent").Inc()
		r.sleep(r.opts.SuccessPause)
	}

	took := time.Since(start)
	metrics.BroadcastDuration.Observe(took.Seconds())
	logger.BCAST.Info("broadcast finished",
		slog.String("event", "broadcast.done"),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		logger.IDPreview("failed_ids", failed, 10),
		slog.Int("skipped", res.Skipped),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return res
}
