package tmux

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsSubmissionsInOrder(t *testing.T) {
	q := newCommandQueue()
	defer q.close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, q.submit(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestQueueReturnsRunError(t *testing.T) {
	q := newCommandQueue()
	defer q.close()

	boom := errors.New("send-keys failed")
	err := q.submit(func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := newCommandQueue()
	q.close()
	q.close() // double close is safe

	err := q.submit(func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueCloseUnblocksFullQueue(t *testing.T) {
	q := newCommandQueue()

	// Wedge the worker so the buffer fills, then overflow it with blocked
	// submitters. close must still get through and release all of them.
	release := make(chan struct{})
	go q.submit(func() error { <-release; return nil })

	var wg sync.WaitGroup
	for i := 0; i < cap(q.items)+4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.submit(func() error { return nil })
		}()
	}

	q.close()
	close(release)
	wg.Wait()

	err := q.submit(func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}
