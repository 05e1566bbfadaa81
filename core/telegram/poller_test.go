package telegram

import (
	"slices"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/voicebot/core/config"

	tele "gopkg.in/telebot.v4"
)

func TestNewPollerWebhook(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.Listen = "::"
	cfg.Webhook.Port = 8443
	cfg.Webhook.URL = "https://bot.example.org/hook"

	hook, ok := newPoller(cfg).(*tele.Webhook)
	if !ok {
		t.Fatalf("expected webhook poller")
	}
	if hook.Listen != "[::]:8443" || hook.Endpoint.PublicURL != cfg.Webhook.URL {
		t.Fatalf("unexpected webhook %+v", hook)
	}
	if !slices.Contains(hook.AllowedUpdates, "callback_query") {
		t.Fatalf("callbacks must be allowed, got %v", hook.AllowedUpdates)
	}
}

func TestNewPollerLongPoll(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll

	lp, ok := newPoller(cfg).(*tele.LongPoller)
	if !ok {
		t.Fatalf("expected long poller")
	}
	if lp.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %v", lp.Timeout)
	}
	if LongPollTimeout(25) != 25*time.Second {
		t.Fatalf("configured timeout ignored")
	}
}
