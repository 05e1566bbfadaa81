package middleware

import (
	"errors"
	"testing"

	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func TestRecoverReportsPanickingHandler(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{ID: 3, Message: &tele.Message{Sender: &tele.User{ID: 8}, Chat: &tele.Chat{ID: 8}}})
	var reported string
	h := Recover(func(handler string) { reported = handler })(func(c tele.Context) error {
		tghelpers.WithHandler(c, "admin")
		panic("nil map")
	})

	err := h(c)
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}
	if reported != "admin" {
		t.Fatalf("expected panic reported for admin, got %q", reported)
	}
}

func TestRecoverPassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	h := Recover(nil)(func(tele.Context) error { return boom })
	if err := h(tele.NewContext(nil, tele.Update{})); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

func TestLoggerMiddlewareStoresUpdateContext(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{ID: 4, Message: &tele.Message{Text: "secret", Sender: &tele.User{ID: 2}, Chat: &tele.Chat{ID: 2}}})
	calls := 0
	h := LoggerMiddleware(LoggerMiddleware(func(c tele.Context) error {
		calls++
		if _, ok := tghelpers.ContextFrom(c); !ok {
			t.Fatalf("update context not stored")
		}
		return nil
	}))
	if err := h(c); err != nil || calls != 1 {
		t.Fatalf("unexpected result err=%v calls=%d", err, calls)
	}
}
