package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"timeout", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}, true},
		{"reset", &net.OpError{Op: "read", Err: fmt.Errorf("read: %w", syscall.ECONNRESET)}, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("no route")}, true},
		{"server", &tele.Error{Code: 502, Description: "Bad Gateway"}, true},
		{"too many", &tele.Error{Code: 429, Description: "Too Many Requests"}, true},
		{"flood", tele.FloodError{RetryAfter: 3}, true},
		{"blocked", &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, false},
		{"bad request", &tele.Error{Code: 400, Description: "Bad Request: chat not found"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, c := range cases {
		if got := ShouldRetry(c.err); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	if got := RetryAfter(tele.FloodError{RetryAfter: 4}); got != 4*time.Second {
		t.Fatalf("expected 4s, got %v", got)
	}
	if got := RetryAfter(timeoutErr{}); got != 0 {
		t.Fatalf("non flood error must not ask for a wait, got %v", got)
	}
}
