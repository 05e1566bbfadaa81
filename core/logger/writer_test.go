package logger

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

// lockedBuffer lets the test read while the writer goroutine writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingSink struct{ err error }

func (f failingSink) Write([]byte) (int, error) { return 0, f.err }

func TestLineWriterFlushSeesEarlierLines(t *testing.T) {
	out := &lockedBuffer{}
	w := newLineWriter([]io.Writer{out}, 1<<20)
	defer w.Close()

	for i := 0; i < 100; i++ {
		if err := w.Write([]byte("line\n")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := strings.Count(out.String(), "line\n"); got != 100 {
		t.Fatalf("expected 100 lines after flush, got %d", got)
	}
}

func TestLineWriterRejectsWritesAfterClose(t *testing.T) {
	out := &lockedBuffer{}
	w := newLineWriter([]io.Writer{out}, 0)
	if err := w.Write([]byte("last\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if out.String() != "last\n" {
		t.Fatalf("close must drain the queue, got %q", out.String())
	}
	if err := w.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("expected errWriterClosed, got %v", err)
	}
	if err := w.Flush(); !errors.Is(err, errWriterClosed) {
		t.Fatalf("expected errWriterClosed from flush, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestLineWriterKeepsFirstSinkError(t *testing.T) {
	disk := errors.New("disk full")
	w := newLineWriter([]io.Writer{failingSink{err: disk}}, 16)
	if err := w.Write([]byte("a line longer than the buffer\n")); err != nil {
		t.Fatalf("first write is queued before the sink fails: %v", err)
	}
	if err := w.Flush(); !errors.Is(err, disk) {
		t.Fatalf("expected sink error from flush, got %v", err)
	}
	if err := w.Write([]byte("next\n")); !errors.Is(err, disk) {
		t.Fatalf("expected sticky sink error, got %v", err)
	}
	if err := w.Close(); !errors.Is(err, disk) {
		t.Fatalf("expected sink error from close, got %v", err)
	}
}
