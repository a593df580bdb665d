// Package tee implements §4.B: forwarding newly-appended bytes from a
// capture file, already being written by the child, to a destination
// stream — without a pipe, so the child's write rate is never throttled by
// how fast the destination drains (§4.B "motivation").
package tee

import (
	"io"
	"os"
	"sync"
	"time"
)

// pollInterval is the fixed cycle on which the tee checks the capture file
// for newly-appended bytes, per §4.B/§5.
const pollInterval = 10 * time.Millisecond

// Tee copies newly-appended bytes of a capture file to a destination
// stream on a background loop, started by Start and stopped by Stop. Stop
// guarantees one final drain pass after the stop signal, so the last bytes
// the child wrote are forwarded before Stop returns (§4.B, §5 "the final
// tee drain completes before the capture file is closed").
type Tee struct {
	path string
	dst  io.Writer

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	err     error
	started bool
}

// New returns a Tee that will forward bytes appended to path to dst.
func New(path string, dst io.Writer) *Tee {
	return &Tee{
		path: path,
		dst:  dst,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start opens the capture file for reading (if not already open) and
// begins the background poll loop. It returns once the file is open for
// reading, per §4.B ("the tee must open it before returning from start").
func (t *Tee) Start() error {
	f, err := openForReadWithRetry(t.path)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	go t.run(f)
	return nil
}

// run is the background poll loop: on a fixed cadence, copy any bytes
// appended to f since the last pass to dst, flushing after each copy.
func (t *Tee) run(f *os.File) {
	defer close(t.done)
	defer f.Close()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			// Guaranteed final drain: one more pass after the stop signal.
			t.drain(f)
			return
		case <-ticker.C:
			t.drain(f)
		}
	}
}

func (t *Tee) drain(f *os.File) {
	if _, err := io.Copy(t.dst, f); err != nil {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
		return
	}
	if flusher, ok := t.dst.(interface{ Sync() error }); ok {
		_ = flusher.Sync()
	}
}

// Stop signals the poll loop to perform its final drain and exit, then
// blocks until it has done so. Stop is safe to call multiple times. The
// stop path always runs to completion even if a prior drain saw an I/O
// error (§4.B "the stop path always runs").
func (t *Tee) Stop() error {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return nil
	}
	t.once.Do(func() { close(t.stop) })
	<-t.done

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// openForReadWithRetry opens path for reading, retrying briefly if the
// child hasn't created the capture file yet (Start can race the child's
// first write).
func openForReadWithRetry(path string) (*os.File, error) {
	const (
		attempts = 50
		delay    = 2 * time.Millisecond
	)
	var lastErr error
	for i := 0; i < attempts; i++ {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		lastErr = err
		if !os.IsNotExist(err) {
			return nil, err
		}
		time.Sleep(delay)
	}
	return nil, lastErr
}
