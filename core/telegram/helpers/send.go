package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the outbound queue used by the send helpers; nil
// makes them call the Bot API inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// outbound is one Bot API call made on behalf of the current update.
type outbound struct {
	action   string
	endpoint string
	keyboard bool
	call     func() error
}

// send counts the reply against the update tally and queues the call.
func send(ctx context.Context, o outbound) error {
	countReply(ctx, o.keyboard)
	return Enqueue(ctx, o.action, o.endpoint, o.call)
}

// Enqueue hands run to the dispatcher. Without one, or when the queue is full
// or already closed, run is called inline so a reply is never dropped.
func Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText replies with plain text (no parse mode) in the chat of c.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var so *tele.SendOptions
	if len(opts) > 0 && opts[0] != nil {
		so = opts[0]
	}
	return send(BuildContext(c), outbound{
		action:   "send.text",
		endpoint: "sendMessage",
		keyboard: so != nil && so.ReplyMarkup != nil,
		call: func() error {
			if so == nil {
				return c.Send(text)
			}
			return c.Send(text, so)
		},
	})
}

// SendTo sends plain text with an optional inline keyboard to chatID.
func SendTo(ctx context.Context, api tele.API, chatID int64, text string, markup *tele.ReplyMarkup) error {
	return send(ctx, outbound{
		action:   "send.text",
		endpoint: "sendMessage",
		keyboard: markup != nil,
		call: func() error {
			_, err := api.Send(tele.ChatID(chatID), text, &tele.SendOptions{ReplyMarkup: markup})
			return err
		},
	})
}

// SendDocumentTo uploads the file at path to chatID.
func SendDocumentTo(ctx context.Context, api tele.API, chatID int64, path, caption string) error {
	return send(ctx, outbound{
		action:   "send.document",
		endpoint: "sendDocument",
		call: func() error {
			doc := &tele.Document{File: tele.FromDisk(path), Caption: caption}
			_, err := api.Send(tele.ChatID(chatID), doc)
			return err
		},
	})
}
