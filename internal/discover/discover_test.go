package discover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/fcdbg/internal/domain"
)

type scriptedPanes struct {
	mu    sync.Mutex
	pages [][]string // successive ListPanes results; last page repeats
	err   error
	calls int
}

func (s *scriptedPanes) ListPanes(string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	page := s.pages[min(s.calls, len(s.pages)-1)]
	s.calls++
	return page, nil
}

type fakeLiveness struct {
	mu   sync.Mutex
	dead map[int]bool
}

func (f *fakeLiveness) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead[pid]
}

func (f *fakeLiveness) markDead(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead == nil {
		f.dead = map[int]bool{}
	}
	f.dead[pid] = true
}

func fastFinder(panes PaneLister, procs Liveness) *Finder {
	return NewFinder(panes, procs,
		WithPollInterval(2*time.Millisecond),
		WithStabilization(2*time.Millisecond),
	)
}

func TestFindByBinaryNameMatches(t *testing.T) {
	panes := &scriptedPanes{pages: [][]string{{"sim:0.0 12345 arduplane"}}}
	f := fastFinder(panes, &fakeLiveness{})

	handle, err := f.FindByBinaryName(context.Background(), "sim", "arduplane", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 12345, handle.PID)
	assert.Equal(t, "arduplane", handle.CommandLine)
	assert.False(t, handle.DiscoveredAt.IsZero())
}

func TestFindByBinaryNameTimesOutWithoutMatch(t *testing.T) {
	panes := &scriptedPanes{pages: [][]string{{"sim:0.0 12345 bash"}}}
	f := fastFinder(panes, &fakeLiveness{})

	_, err := f.FindByBinaryName(context.Background(), "sim", "arduplane", 20*time.Millisecond)
	var timeout *domain.DiscoveryTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "arduplane", timeout.Binary)
	assert.Equal(t, "sim", timeout.Session)
}

func TestFindByBinaryNameCaseInsensitiveSubstring(t *testing.T) {
	panes := &scriptedPanes{pages: [][]string{
		{"sim:0.0 777 /home/dev/build/sitl/bin/ArduPlane --model quad"},
	}}
	f := fastFinder(panes, &fakeLiveness{})

	handle, err := f.FindByBinaryName(context.Background(), "sim", "arduplane", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 777, handle.PID)
}

func TestFindByBinaryNameSkipsCrashedCandidate(t *testing.T) {
	// First poll shows pid 100 which dies inside the settle window; the
	// second poll shows the restarted pid 200 which survives.
	panes := &scriptedPanes{pages: [][]string{
		{"sim:0.0 100 arduplane"},
		{"sim:0.0 200 arduplane"},
	}}
	live := &fakeLiveness{}
	live.markDead(100)
	f := fastFinder(panes, live)

	handle, err := f.FindByBinaryName(context.Background(), "sim", "arduplane", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 200, handle.PID)
}

func TestFindByBinaryNameSessionQueryError(t *testing.T) {
	panes := &scriptedPanes{err: errors.New("no server running")}
	f := fastFinder(panes, &fakeLiveness{})

	_, err := f.FindByBinaryName(context.Background(), "sim", "arduplane", time.Second)
	var queryErr *domain.SessionQueryError
	require.ErrorAs(t, err, &queryErr)
}

func TestFindByBinaryNameHonorsContext(t *testing.T) {
	panes := &scriptedPanes{pages: [][]string{{"sim:0.0 1 bash"}}}
	f := fastFinder(panes, &fakeLiveness{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FindByBinaryName(ctx, "sim", "arduplane", time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParsePaneLine(t *testing.T) {
	t.Run("well-formed", func(t *testing.T) {
		p, ok := parsePaneLine("sim:0.0 12345 arduplane --model plane")
		require.True(t, ok)
		assert.Equal(t, "sim:0.0", p.ID)
		assert.Equal(t, 12345, p.PID)
		assert.Equal(t, "arduplane --model plane", p.Command)
	})

	t.Run("rejects malformed lines", func(t *testing.T) {
		_, ok := parsePaneLine("sim:0.0 12345")
		assert.False(t, ok)
		_, ok = parsePaneLine("sim:0.0 notapid bash")
		assert.False(t, ok)
		_, ok = parsePaneLine("")
		assert.False(t, ok)
	})
}
