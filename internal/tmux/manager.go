// Package tmux drives the terminal multiplexer hosting firmware payloads.
// Sessions are created detached and outlive any single client connection,
// which is what lets a debugger attach to a process that keeps running when
// the editor or CLI goes away.
package tmux

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/GianlucaP106/gotmux/gotmux"
	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
)

// Commander abstracts the tmux client so tests can fake it.
type Commander interface {
	Command(args ...string) (string, error)
}

// paneFormat yields "session:window.pane pid command" lines, the shape
// process discovery parses.
const paneFormat = "#{session_name}:#{window_index}.#{pane_index} #{pane_pid} #{pane_current_command}"

// SessionPrefix marks sessions created by this tool, so listing and bulk
// cleanup never touch a user's own tmux sessions.
const SessionPrefix = "fcdbg-"

// DefaultSettleDelay is how long a freshly created session gets before it is
// assumed interactive. tmux needs a moment after new-session before
// send-keys lands reliably.
const DefaultSettleDelay = time.Second

// Manager creates, feeds and destroys multiplexer sessions. All commands for
// one session flow through a per-session queue drained in submission order.
type Manager struct {
	mu          sync.Mutex
	tmux        Commander
	clock       clock.Clock
	settleDelay time.Duration
	queues      map[string]*commandQueue
}

// Option adjusts Manager construction.
type Option func(*Manager)

// WithClock substitutes the clock used for settle delays.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) { m.clock = clk }
}

// WithSettleDelay overrides the post-creation settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(m *Manager) { m.settleDelay = d }
}

// NewManager connects to the default tmux server.
func NewManager(opts ...Option) (*Manager, error) {
	t, err := gotmux.DefaultTmux()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tmux: %w", err)
	}
	return NewManagerWith(t, opts...), nil
}

// NewManagerWith builds a Manager on an explicit commander. Tests pass fakes.
func NewManagerWith(c Commander, opts ...Option) *Manager {
	m := &Manager{
		tmux:        c,
		clock:       clock.New(),
		settleDelay: DefaultSettleDelay,
		queues:      make(map[string]*commandQueue),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsTmuxAvailable reports whether the tmux binary is on PATH.
func IsTmuxAvailable() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

// HasSession reports whether the named session exists.
func (m *Manager) HasSession(name string) bool {
	_, err := m.tmux.Command("has-session", "-t", name)
	return err == nil
}

// EnsureSession creates the named session if absent. The existence check
// runs first so a concurrent or leftover session never turns into a
// duplicate-session error. After creating, the manager waits the settle
// delay, enables mouse support and changes into workDir.
func (m *Manager) EnsureSession(name, workDir string) error {
	return m.enqueue(name, func() error {
		if m.HasSession(name) {
			return nil
		}

		if _, err := m.tmux.Command("new-session", "-d", "-s", name, "-x", "200", "-y", "50"); err != nil {
			return fmt.Errorf("tmux new-session %s: %w", name, err)
		}

		// The session is not interactive at creation-return time.
		m.clock.Sleep(m.settleDelay)

		if _, err := m.tmux.Command("set-option", "-t", name, "mouse", "on"); err != nil {
			return fmt.Errorf("tmux set-option mouse %s: %w", name, err)
		}

		if workDir != "" {
			if err := m.sendLine(name, "cd "+shellQuote(workDir)); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunDetached submits command to the named session and returns once the
// submission completed. It deliberately does not wait for the command to
// finish: the payload is expected to run for the whole debug session.
func (m *Manager) RunDetached(name, command string) error {
	return m.enqueue(name, func() error {
		return m.sendLine(name, command)
	})
}

// SendInterrupt delivers Ctrl-C to the session's active pane.
func (m *Manager) SendInterrupt(name string) error {
	return m.enqueue(name, func() error {
		if _, err := m.tmux.Command("send-keys", "-t", sessionTarget(name), "C-c"); err != nil {
			return fmt.Errorf("tmux send-keys C-c %s: %w", name, err)
		}
		return nil
	})
}

// ListPanes returns one "session:window.pane pid command" line per pane of
// the named session.
func (m *Manager) ListPanes(name string) ([]string, error) {
	out, err := m.tmux.Command("list-panes", "-s", "-t", name, "-F", paneFormat)
	if err != nil {
		return nil, fmt.Errorf("tmux list-panes %s: %w", name, err)
	}
	return lo.Filter(strings.Split(out, "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	}), nil
}

// ListSessions returns the names of live sessions created by this tool.
// A missing tmux server means no sessions exist.
func (m *Manager) ListSessions() ([]string, error) {
	out, err := m.tmux.Command("list-sessions", "-F", "#{session_name}")
	if err != nil {
		return nil, nil
	}
	return lo.Filter(strings.Split(out, "\n"), func(line string, _ int) bool {
		return strings.HasPrefix(strings.TrimSpace(line), SessionPrefix)
	}), nil
}

// Kill destroys the named session and drains its queue. Killing a session
// that no longer exists is a no-op.
func (m *Manager) Kill(name string) error {
	m.mu.Lock()
	if q, ok := m.queues[name]; ok {
		delete(m.queues, name)
		q.close()
	}
	m.mu.Unlock()

	if !m.HasSession(name) {
		return nil
	}
	if _, err := m.tmux.Command("kill-session", "-t", name); err != nil {
		return fmt.Errorf("tmux kill-session %s: %w", name, err)
	}
	return nil
}

// AttachCommand returns the shell command a user runs to attach to name.
func (m *Manager) AttachCommand(name string) string {
	return "tmux attach-session -t " + name
}

func (m *Manager) sendLine(name, line string) error {
	if _, err := m.tmux.Command("send-keys", "-t", sessionTarget(name), line, "Enter"); err != nil {
		return fmt.Errorf("tmux send-keys %s: %w", name, err)
	}
	return nil
}

func (m *Manager) enqueue(name string, fn func() error) error {
	m.mu.Lock()
	q, ok := m.queues[name]
	if !ok {
		q = newCommandQueue()
		m.queues[name] = q
	}
	m.mu.Unlock()
	return q.submit(fn)
}

func sessionTarget(name string) string {
	return name + ":0.0"
}

// shellQuote single-quotes a string for submission through send-keys.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
