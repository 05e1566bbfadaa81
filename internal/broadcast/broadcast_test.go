package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSender struct {
	mu     sync.Mutex
	failOn map[int64]bool
	sent   []int64
}

func (f *fakeSender) Send(_ context.Context, id int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id)
	if f.failOn[id] {
		return errors.New("blocked by user")
	}
	return nil
}

func newTestRunner(s Sender, opts Options) (*Runner, *[]time.Duration) {
	r := New(s, opts)
	var pauses []time.Duration
	r.sleep = func(d time.Duration) { pauses = append(pauses, d) }
	return r, &pauses
}

func TestRunCountsFailuresAndContinues(t *testing.T) {
	sender := &fakeSender{failOn: map[int64]bool{2: true}}
	r, pauses := newTestRunner(sender, Options{})

	res := r.Run(context.Background(), "hello", []int64{1, 2, 3})
	if res.Sent != 2 || res.Failed != 1 || res.Skipped != 0 {
		t.Fatalf("expected sent=2 failed=1, got %+v", res)
	}
	if len(sender.sent) != 3 || sender.sent[2] != 3 {
		t.Fatalf("loop must continue after a failure, attempted %v", sender.sent)
	}
	want := []time.Duration{DefaultSuccessPause, DefaultFailurePause, DefaultSuccessPause}
	if len(*pauses) != len(want) {
		t.Fatalf("expected %d pauses, got %v", len(want), *pauses)
	}
	for i := range want {
		if (*pauses)[i] != want[i] {
			t.Fatalf("pause %d: expected %v, got %v", i, want[i], (*pauses)[i])
		}
	}
}

func TestRunSkipsUnusableIDs(t *testing.T) {
	sender := &fakeSender{failOn: map[int64]bool{5: true}}
	r, _ := newTestRunner(sender, Options{SuccessPause: time.Millisecond, FailurePause: time.Millisecond})

	recipients := []int64{0, 4, -1, 5, 6}
	res := r.Run(context.Background(), "x", recipients)
	if res.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %+v", res)
	}
	if res.Sent+res.Failed != 3 {
		t.Fatalf("sent+failed must equal usable recipients, got %+v", res)
	}
}

func TestRunEmptyList(t *testing.T) {
	r, pauses := newTestRunner(&fakeSender{}, Options{})
	if res := r.Run(context.Background(), "x", nil); res != (Result{}) {
		t.Fatalf("expected zero result, got %+v", res)
	}
	if len(*pauses) != 0 {
		t.Fatalf("no pauses expected")
	}
}

func TestRunWithLimiter(t *testing.T) {
	sender := &fakeSender{}
	r, _ := newTestRunner(sender, Options{RatePerSec: 1000, Burst: 10})
	res := r.Run(context.Background(), "x", []int64{1, 2, 3, 4})
	if res.Sent != 4 {
		t.Fatalf("expected 4 sent, got %+v", res)
	}
}
