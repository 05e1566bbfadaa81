package logger

import (
	"context"
	"testing"
)

func TestUpdateMetaRoundTrip(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(context.Background(), "7:-100:42"), 7, 42, -100)
	ctx = WithHandler(ctx, "admin")

	if UpdateIDFrom(ctx) != 7 || UserIDFrom(ctx) != 42 || ChatIDFrom(ctx) != -100 {
		t.Fatalf("meta lost: %d %d %d", UpdateIDFrom(ctx), UserIDFrom(ctx), ChatIDFrom(ctx))
	}
	if RIDFrom(ctx) != "7:-100:42" || HandlerFrom(ctx) != "admin" {
		t.Fatalf("rid or handler lost")
	}
	if UserIDFrom(context.Background()) != 0 || RIDFrom(nil) != "" {
		t.Fatalf("empty context must yield zero values")
	}
	if FromContext(nil) != L {
		t.Fatalf("default logger expected")
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := Sanitize("a\x00b​c\n\td\x7f"); got != "abc\n\td" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeLimit("x", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"35:-100:36": "z.-2s.10",
		"":           "",
		"a:b:c":      "a:b:c",
		"1:2":        "1:2",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Fatalf("%q: got %q, want %q", in, got, want)
		}
	}
}
