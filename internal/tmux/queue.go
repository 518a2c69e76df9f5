package tmux

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned for submissions against a killed session.
var ErrQueueClosed = errors.New("session command queue closed")

// commandQueue serializes commands for one session. A single worker drains
// submissions in order, so callers never race each other into send-keys.
type commandQueue struct {
	mu     sync.Mutex
	items  chan queueItem
	quit   chan struct{}
	closed bool
}

type queueItem struct {
	run  func() error
	done chan error
}

func newCommandQueue() *commandQueue {
	q := &commandQueue{
		items: make(chan queueItem, 16),
		quit:  make(chan struct{}),
	}
	go q.drain()
	return q
}

// submit enqueues fn and blocks until the worker has executed it. The send
// happens outside the lock, so a full queue blocks only this submitter and
// close can still get through.
func (q *commandQueue) submit(fn func() error) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	item := queueItem{run: fn, done: make(chan error, 1)}
	select {
	case q.items <- item:
	case <-q.quit:
		return ErrQueueClosed
	}
	select {
	case err := <-item.done:
		return err
	case <-q.quit:
		return ErrQueueClosed
	}
}

func (q *commandQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.quit)
}

func (q *commandQueue) drain() {
	for {
		select {
		case item := <-q.items:
			item.done <- item.run()
		case <-q.quit:
			return
		}
	}
}
