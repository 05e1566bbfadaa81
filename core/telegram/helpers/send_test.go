package helpers

import (
	"context"
	"testing"

	"github.com/m3rciful/voicebot/core/telegram/sender"
)

func TestEnqueueRunsInlineWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	ran := false
	if err := Enqueue(context.Background(), "send.text", "sendMessage", func() error { ran = true; return nil }); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !ran {
		t.Fatalf("call must run inline without a dispatcher")
	}
}

func TestEnqueueFallsBackWhenQueueClosed(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	d.Close()
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	ran := false
	if err := Enqueue(context.Background(), "send.text", "sendMessage", func() error { ran = true; return nil }); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !ran {
		t.Fatalf("closed queue must fall back to an inline call")
	}
}

func TestSendCountsReply(t *testing.T) {
	SetDispatcher(nil)
	ctx, tally := WithReplyTally(context.Background())
	_ = send(ctx, outbound{action: "send.text", endpoint: "sendMessage", keyboard: true, call: func() error { return nil }})
	_ = send(ctx, outbound{action: "send.document", endpoint: "sendDocument", call: func() error { return nil }})
	if n, kb := tally.Counts(); n != 2 || !kb {
		t.Fatalf("expected 2 replies with keyboard, got %d %v", n, kb)
	}
}
