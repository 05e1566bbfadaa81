package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/voicebot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// allowedUpdates are the update kinds the bot routes. Telegram drops the rest
// before they reach the poller.
var allowedUpdates = []string{"message", "callback_query"}

// newPoller builds the poller of the configured run mode. Config validation
// has already normalized the mode and checked the webhook fields.
func newPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			AllowedUpdates: allowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{
		Timeout:        LongPollTimeout(cfg.Telegram.LongPollTimeoutSeconds),
		AllowedUpdates: allowedUpdates,
	}
}

// LongPollTimeout converts the configured seconds, 10s when unset.
func LongPollTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultLongPollTimeout
	}
	return time.Duration(seconds) * time.Second
}
