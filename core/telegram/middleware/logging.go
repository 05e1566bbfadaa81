package middleware

import (
	"log/slog"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// loggedKey marks an update whose receipt was already logged.
const loggedKey = "voicebot.update_logged"

// LoggerMiddleware creates the update context (rid, ids, logger) and logs a
// sampled update.received line once per update. Message text is logged under
// "text", which the log schema reduces to its length.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		kind := tghelpers.UpdateKind(upd)
		if c.Get(loggedKey) == nil && logger.ShouldSampleDebug("update.received."+kind) {
			c.Set(loggedKey, true)
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", receiptAttrs(c, kind)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, kind string) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("kind", kind),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}

	switch upd := c.Update(); {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	case upd.Message != nil:
		attrs = append(attrs, slog.String("text", c.Text()))
	}
	return attrs
}
