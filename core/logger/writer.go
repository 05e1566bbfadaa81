package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// writeReq is either a log line or, when flushed is set, a flush request.
type writeReq struct {
	line    []byte
	flushed chan error
}

// lineWriter hands log lines to one goroutine that copies them to every sink.
// Lines and flush requests share the queue, so Flush returns only after all
// lines written before it reached the sinks. Sinks are flushed whenever the
// queue runs empty. The first sink error is sticky.
type lineWriter struct {
	queue chan writeReq
	done  chan struct{}
	sinks []*bufio.Writer

	stateMu sync.RWMutex
	closed  bool

	errMu sync.Mutex
	err   error
}

func newLineWriter(writers []io.Writer, bufSize int) *lineWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &lineWriter{
		queue: make(chan writeReq, 256),
		done:  make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *lineWriter) run() {
	defer close(w.done)
	for req := range w.queue {
		if req.flushed != nil {
			req.flushed <- w.flush()
			continue
		}
		w.fail(w.write(req.line))
		if len(w.queue) == 0 {
			w.fail(w.flush())
		}
	}
	w.fail(w.flush())
}

// Write queues a copy of line. It blocks while the queue is full rather than
// drop the line.
func (w *lineWriter) Write(line []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(line) == 0 {
		return nil
	}
	return w.enqueue(writeReq{line: append([]byte(nil), line...)})
}

// Flush waits until every line queued before it is written and flushed.
func (w *lineWriter) Flush() error {
	ack := make(chan error, 1)
	if err := w.enqueue(writeReq{flushed: ack}); err != nil {
		return err
	}
	if err := <-ack; err != nil {
		return err
	}
	return w.Err()
}

// Close drains the queue, flushes the sinks and reports the first sink error.
// Writes after Close fail with errWriterClosed.
func (w *lineWriter) Close() error {
	w.stateMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.stateMu.Unlock()
	<-w.done
	return w.Err()
}

// Err returns the first sink error, if any.
func (w *lineWriter) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *lineWriter) enqueue(req writeReq) error {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- req
	return nil
}

func (w *lineWriter) write(line []byte) error {
	for _, sink := range w.sinks {
		if _, err := sink.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (w *lineWriter) flush() error {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *lineWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
