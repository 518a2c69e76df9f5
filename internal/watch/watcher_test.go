package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForEmptyTargetResolvesImmediately(t *testing.T) {
	w := New(nil)
	start := time.Now()
	assert.True(t, w.WaitFor("", time.Minute))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForAlreadyPresentTarget(t *testing.T) {
	w := New(nil)
	_, err := w.Write([]byte("Info : Listening on port 3333 for gdb connections\n"))
	require.NoError(t, err)

	start := time.Now()
	assert.True(t, w.WaitFor("Listening on port 3333", time.Minute))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForResolvesWhenTargetArrives(t *testing.T) {
	w := New(nil)

	done := make(chan bool, 1)
	go func() {
		done <- w.WaitFor("gdb connections", 5*time.Second)
	}()

	// Give the waiter a moment to register, then feed the target.
	time.Sleep(20 * time.Millisecond)
	w.Write([]byte("Open On-Chip Debugger 0.12.0\n"))
	w.Write([]byte("Listening on port 3333 for gdb connections\n"))

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke up")
	}
}

func TestWaitForTargetSpanningChunks(t *testing.T) {
	w := New(nil)

	done := make(chan bool, 1)
	go func() {
		done <- w.WaitFor("port 2331", 5*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	w.Write([]byte("Listening on por"))
	w.Write([]byte("t 2331\n"))

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke up")
	}
}

func TestWaitForTimeout(t *testing.T) {
	w := New(nil)
	w.Write([]byte("unrelated output\n"))

	assert.False(t, w.WaitFor("never appears", 50*time.Millisecond))
}

func TestContentsAccumulates(t *testing.T) {
	w := New(nil)
	w.Write([]byte("first "))
	w.Write([]byte("second"))
	assert.Equal(t, "first second", w.Contents())
}
