package telegram

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type flakyTransport struct {
	failures int
	calls    int
	bodies   []string
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(b))
	}
	if f.calls <= f.failures {
		return nil, timeoutErr{}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestRetryTransportReplaysBody(t *testing.T) {
	base := &flakyTransport{failures: 2}
	rt := &retryTransport{base: base, retries: 3}

	req, _ := http.NewRequest(http.MethodPost, "http://example.invalid/sendMessage", strings.NewReader("hello"))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	_ = resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", base.calls)
	}
	for _, b := range base.bodies {
		if b != "hello" {
			t.Fatalf("body not replayed: %q", base.bodies)
		}
	}
}

func TestRetryTransportGivesUp(t *testing.T) {
	base := &flakyTransport{failures: 10}
	rt := &retryTransport{base: base, retries: 2}

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/getMe", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, timeoutErr{}) {
		t.Fatalf("expected last error, got %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", base.calls)
	}
}

func TestRetryTransportSkipsOpaqueBody(t *testing.T) {
	base := &flakyTransport{failures: 1}
	rt := &retryTransport{base: base, retries: 2}

	req, _ := http.NewRequest(http.MethodPost, "http://example.invalid/sendDocument", nil)
	req.Body = io.NopCloser(strings.NewReader("file"))
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatalf("expected error for non-replayable body")
	}
	if base.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", base.calls)
	}
}

func TestBuildHTTPClientCoversLongPoll(t *testing.T) {
	c := BuildHTTPClient(HTTPClientOptions{LongPoll: LongPollTimeout(60)})
	if c.Timeout <= 60*time.Second {
		t.Fatalf("client timeout %v shorter than long poll", c.Timeout)
	}
	tr := c.Transport.(*retryTransport).base.(*http.Transport)
	if tr.ResponseHeaderTimeout <= 60*time.Second {
		t.Fatalf("header timeout %v shorter than long poll", tr.ResponseHeaderTimeout)
	}
}
