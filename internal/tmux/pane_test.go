package tmux

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoedLines extracts the payload of every "echo '...'" sent to a session.
func echoedLines(f *fakeCommander) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var lines []string
	for _, call := range f.calls {
		if call[0] == "send-keys" && len(call) >= 5 && strings.HasPrefix(call[3], "echo ") {
			lines = append(lines, strings.Trim(strings.TrimPrefix(call[3], "echo "), "'"))
		}
	}
	return lines
}

func TestWriteBanner(t *testing.T) {
	f := newFakeCommander()
	m := newTestManager(f)

	require.NoError(t, m.EnsureSession("s", ""))
	require.NoError(t, m.WriteBanner("s", "arduplane", "simulation payload"))

	joined := strings.Join(echoedLines(f), "\n")
	assert.Contains(t, joined, "fcdbg - simulation payload")
	assert.Contains(t, joined, "Target: arduplane | Session: s")
}

func TestPaneWriterBuffersPartialLines(t *testing.T) {
	f := newFakeCommander()
	m := newTestManager(f)
	require.NoError(t, m.EnsureSession("s", ""))

	w := NewPaneWriter(m, "s")
	_, err := w.Write([]byte("first line\nsecond "))
	require.NoError(t, err)
	_, err = w.Write([]byte("half\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"first line", "second half"}, echoedLines(f))
}

func TestPaneWriterFlush(t *testing.T) {
	f := newFakeCommander()
	m := newTestManager(f)
	require.NoError(t, m.EnsureSession("s", ""))

	w := NewPaneWriter(m, "s")
	_, err := w.Write([]byte("dangling"))
	require.NoError(t, err)
	assert.Empty(t, echoedLines(f))

	require.NoError(t, w.Flush())
	assert.Equal(t, []string{"dangling"}, echoedLines(f))
}
