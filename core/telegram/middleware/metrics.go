package middleware

import (
	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MessageMetricsMiddleware attaches a reply tally to the update context so the
// handler summary can report how many messages were queued.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, _ := tghelpers.WithReplyTally(tghelpers.BuildContext(c))
		tghelpers.StoreContext(c, ctx)
		return next(c)
	}
}

// GetCounters reads the reply count and keyboard flag of the current update.
func GetCounters(c tele.Context) (int, bool) {
	ctx, ok := tghelpers.ContextFrom(c)
	if !ok {
		return 0, false
	}
	return tghelpers.TallyFrom(ctx).Counts()
}
