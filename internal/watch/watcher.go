// Package watch captures subprocess output and gates callers on the
// appearance of a target substring.
package watch

import (
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Watcher accumulates everything written to it and wakes waiters when their
// target text first appears. The buffer is never truncated so a target may
// span chunk boundaries and late waiters still see earlier occurrences.
type Watcher struct {
	mu      sync.Mutex
	buf     strings.Builder
	waiters map[*waiter]struct{}
	clock   clock.Clock
}

type waiter struct {
	target string
	found  chan struct{}
}

// New returns a Watcher using the given clock for timeouts. A nil clock
// falls back to the wall clock.
func New(clk clock.Clock) *Watcher {
	if clk == nil {
		clk = clock.New()
	}
	return &Watcher{
		waiters: make(map[*waiter]struct{}),
		clock:   clk,
	}
}

// Write appends a chunk to the buffer and wakes any waiter whose target now
// occurs in the buffer. Implements io.Writer so a Watcher can sit directly
// on a subprocess's stdout/stderr.
func (w *Watcher) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.buf.Write(p)
	content := w.buf.String()
	for wt := range w.waiters {
		if strings.Contains(content, wt.target) {
			close(wt.found)
			delete(w.waiters, wt)
		}
	}
	w.mu.Unlock()
	return len(p), nil
}

// Contents returns everything captured so far.
func (w *Watcher) Contents() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// WaitFor blocks until target occurs in the buffer or timeout elapses.
// Returns true exactly when the target was seen. An empty target means
// there is no gate and resolves true immediately, as does a target already
// present in the buffer.
func (w *Watcher) WaitFor(target string, timeout time.Duration) bool {
	if target == "" {
		return true
	}

	w.mu.Lock()
	if strings.Contains(w.buf.String(), target) {
		w.mu.Unlock()
		return true
	}
	wt := &waiter{target: target, found: make(chan struct{})}
	w.waiters[wt] = struct{}{}
	w.mu.Unlock()

	timer := w.clock.Timer(timeout)
	defer timer.Stop()

	select {
	case <-wt.found:
		return true
	case <-timer.C:
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, pending := w.waiters[wt]; !pending {
			// A write satisfied the waiter while the timer was firing.
			return true
		}
		delete(w.waiters, wt)
		return false
	}
}
