package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/voicebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the minimum spacing between updates from one user.
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// IdleTTL drops limiters of users quiet for longer; defaults to a minute.
	IdleTTL time.Duration
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// userLimiters holds one token bucket per user.
type userLimiters struct {
	mu      sync.Mutex
	every   rate.Limit
	ttl     time.Duration
	byUser  map[int64]*userLimiter
	sweptAt time.Time
}

func (u *userLimiters) allow(userID int64, now time.Time) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if now.Sub(u.sweptAt) > u.ttl {
		for id, l := range u.byUser {
			if now.Sub(l.seen) > u.ttl {
				delete(u.byUser, id)
			}
		}
		u.sweptAt = now
	}

	l, ok := u.byUser[userID]
	if !ok {
		l = &userLimiter{lim: rate.NewLimiter(u.every, 1)}
		u.byUser[userID] = l
	}
	l.seen = now
	return l.lim.AllowN(now, 1)
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user. Excluded update kinds pass untouched.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	if ttl < opts.Interval {
		ttl = opts.Interval
	}
	limiters := &userLimiters{
		every:  rate.Every(opts.Interval),
		ttl:    ttl,
		byUser: make(map[int64]*userLimiter),
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if limiters.allow(user.ID, time.Now()) {
				return next(c)
			}

			attrs := []any{slog.String("event", "tg.rate_limit"), slog.Int64("user_id", user.ID)}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.TG.Warn("rate limit", attrs...)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
