package router

import (
	tg "github.com/m3rciful/voicebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Sessions is a conversation engine that consumes the free text of users
// with an open question.
type Sessions interface {
	InProgress(userID int64) bool
	HandleSession(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes routes text: open sessions first, then commands by name or
// alias, then UnknownText. Without UnknownText the text is dropped.
func TextRoutes(sessions Sessions, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		if sessions != nil && c.Sender() != nil && sessions.InProgress(c.Sender().ID) {
			return newSummary("session").run(c, sessions.HandleSession)
		}
		if reg != nil {
			if key, run, ok := reg.Resolve(c.Text()); ok {
				return newSummary(normalizeHandlerName(key)).run(c, run)
			}
		}

		s := newSummary("unknown_text")
		if opts.UnknownText == nil {
			s.status = "skip"
			s.log(c, nil)
			return nil
		}
		return s.run(c, opts.UnknownText)
	}

	return []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  handler,
	}}
}
