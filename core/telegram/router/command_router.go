package router

import (
	"log/slog"

	"github.com/m3rciful/voicebot/core/logger"
	tg "github.com/m3rciful/voicebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command to its slash endpoint. Admin
// commands come out of the registry already guarded.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	names := reg.CommandNames()
	routes := make([]tg.Route, 0, len(names))
	for _, cmd := range names {
		def, _ := reg.Command(cmd)
		name := normalizeHandlerName(cmd)
		inner := reg.Handler(def)
		h := func(c tele.Context) error {
			return newSummary(name).run(c, inner)
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(names)),
		slog.Int("callbacks", reg.CallbackCount()),
	)

	return routes
}
