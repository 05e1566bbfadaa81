package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/voicebot/core/logger"
	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminChecker answers whether a Telegram user is an administrator.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	Checker  AdminChecker
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only administrators can invoke downstream handlers.
// Lookup failures are treated as a rejection.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.Checker == nil {
				return next(c)
			}
			user := c.Sender()
			if user == nil {
				return nil
			}
			ctx := tghelpers.BuildContext(c)
			ok, err := opts.Checker.IsAdmin(ctx, user.ID)
			if err != nil {
				logger.Warn(ctx, "tg", "admin.check_failed",
					slog.Int64("user_id", user.ID),
					slog.String("err", err.Error()),
				)
			}
			if !ok {
				logger.Debug(ctx, "tg", "admin.reject", slog.Int64("user_id", user.ID))
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
