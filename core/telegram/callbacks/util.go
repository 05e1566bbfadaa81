package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator splits the routing key from the rest of raw callback data ("admin:credits:list").
const Separator = ":"

// ParseCallbackData returns the routing key and payload of a callback.
// Telebot's \f<unique>|<payload> encoding is honoured; raw data such as
// "admin:credits:user:42" yields key "admin" and payload "credits:user:42".
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := cb.Data
	if strings.HasPrefix(raw, "\f") {
		parts := strings.SplitN(strings.TrimPrefix(raw, "\f"), "|", 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[0]), parts[1]
		}
		return strings.TrimSpace(parts[0]), ""
	}
	key, payload, _ := strings.Cut(raw, Separator)
	return strings.TrimSpace(key), payload
}

// CallbackData returns the callback data exactly as sent by the button.
func CallbackData(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + Separator + cb.Data
	}
	return cb.Data
}
