package helpers

import (
	"context"

	"github.com/m3rciful/voicebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// updateCtxKey is the tele.Context slot holding the per-update context.Context.
const updateCtxKey = "voicebot.update_ctx"

// StoreContext keeps ctx on c for the rest of the handler chain.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(updateCtxKey, ctx)
}

// ContextFrom returns the context stored by StoreContext, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(updateCtxKey).(context.Context)
	return ctx, ok && ctx != nil
}

// UpdateKind names the kind of update for logging: callback, message or update.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	}
	return "update"
}

// newUpdateContext builds the context of the update in c: the rid, the
// update, user and chat ids, and a logger scoped to the update kind.
func newUpdateContext(c tele.Context) context.Context {
	upd := c.Update()
	var userID, chatID int64
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}

	ctx := logger.WithRID(context.Background(), logger.BuildRID(upd.ID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg."+UpdateKind(upd)))
	StoreContext(c, ctx)
	return ctx
}

// BuildContext returns the context of the current update, creating and
// storing it on first use so every middleware and handler shares it.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	return newUpdateContext(c)
}

// WithHandler tags the update context with the handler name for downstream logs.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
