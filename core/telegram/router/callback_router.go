package router

import (
	"log/slog"

	tg "github.com/m3rciful/voicebot/core/telegram"
	"github.com/m3rciful/voicebot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
// Unknown keys are answered and dropped when NotFound is nil.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes callbacks through the registry by the key preceding
// the first ':' of the callback data. Every callback is answered first so the
// client stops its spinner even when the handler fails.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, payload := callbacks.ParseCallbackData(c.Callback())
		s := newSummary("callback."+normalizeHandlerName(key), slog.String("cb_key", key))
		if payload != "" {
			s.attrs = append(s.attrs, slog.String("payload", payload))
		}
		_ = c.Respond()

		if run, ok := reg.GetCallback(key); ok && run != nil {
			return s.run(c, run)
		}
		s.attrs = append(s.attrs, slog.String("reason", "not_found"))
		if opts.NotFound == nil {
			s.status = "skip"
			s.log(c, nil)
			return nil
		}
		return s.run(c, opts.NotFound)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  handler,
	}
}
