package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/voicebot/core/config"
	"github.com/m3rciful/voicebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ChainOptions are the app hooks of the default middleware chain.
type ChainOptions struct {
	// OnLimited answers updates dropped by the rate limiter.
	OnLimited tele.HandlerFunc
	// OnPanic is told which handler panicked.
	OnPanic func(handler string)
}

// DefaultMiddlewares is the chain every update passes, outermost first:
// panic recovery, the per-user rate limit when an interval is configured,
// the update context with its receipt log, and the reply tally.
func DefaultMiddlewares(cfg *coreconfig.Config, opts ChainOptions) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.Recover(opts.OnPanic)}}
	if limit := rateLimit(cfg, opts.OnLimited); limit != nil {
		chain = append(chain, Middleware{Name: "rate_limit", Use: limit})
	}
	return append(chain,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

func rateLimit(cfg *coreconfig.Config, onLimited tele.HandlerFunc) tele.MiddlewareFunc {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return nil
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(strings.TrimSpace(kind))] = struct{}{}
	}
	return middleware.RateLimitMiddleware(middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   exclude,
		OnLimited: onLimited,
	})
}
