package helpers

import (
	"context"
	"testing"
)

func TestReplyTally(t *testing.T) {
	if n, kb := TallyFrom(context.Background()).Counts(); n != 0 || kb {
		t.Fatalf("missing tally must read as zero")
	}
	countReply(context.Background(), true)

	ctx, tally := WithReplyTally(context.Background())
	countReply(ctx, false)
	countReply(context.WithoutCancel(ctx), true)

	n, kb := tally.Counts()
	if n != 2 || !kb {
		t.Fatalf("got %d replies, keyboard=%v", n, kb)
	}
	if TallyFrom(ctx) != tally {
		t.Fatalf("tally not carried by context")
	}
}
