package helpers

import (
	"context"
	"sync/atomic"
)

type tallyKey struct{}

// ReplyTally counts the replies queued while one update is handled.
type ReplyTally struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

// WithReplyTally returns ctx carrying a fresh tally.
func WithReplyTally(ctx context.Context) (context.Context, *ReplyTally) {
	t := &ReplyTally{}
	return context.WithValue(ctx, tallyKey{}, t), t
}

// TallyFrom returns the tally carried by ctx, or nil.
func TallyFrom(ctx context.Context) *ReplyTally {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(tallyKey{}).(*ReplyTally)
	return t
}

// Counts reports how many replies were queued and whether any carried a keyboard.
func (t *ReplyTally) Counts() (int, bool) {
	if t == nil {
		return 0, false
	}
	return int(t.messages.Load()), t.keyboard.Load()
}

func countReply(ctx context.Context, withKeyboard bool) {
	t := TallyFrom(ctx)
	if t == nil {
		return
	}
	t.messages.Add(1)
	if withKeyboard {
		t.keyboard.Store(true)
	}
}
