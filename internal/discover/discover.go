// Package discover locates the firmware process inside a multiplexer
// session by polling pane listings.
package discover

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/fcdbg/internal/domain"
)

// PaneLister exposes the multiplexer's pane listing.
type PaneLister interface {
	ListPanes(session string) ([]string, error)
}

// Liveness probes whether a PID still refers to a live process.
type Liveness interface {
	Alive(pid int) bool
}

// Defaults for the polling cadence. Configurable because the right values
// depend on the firmware's startup latency.
const (
	DefaultPollInterval  = time.Second
	DefaultStabilization = 3 * time.Second
)

// Finder polls pane listings until a pane's current command matches the
// wanted binary name.
type Finder struct {
	panes         PaneLister
	procs         Liveness
	clock         clock.Clock
	pollInterval  time.Duration
	stabilization time.Duration
}

// Option adjusts Finder construction.
type Option func(*Finder)

// WithClock substitutes the clock used for polling and stabilization.
func WithClock(clk clock.Clock) Option {
	return func(f *Finder) { f.clock = clk }
}

// WithPollInterval overrides the pane-poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(f *Finder) { f.pollInterval = d }
}

// WithStabilization overrides the settle window a candidate process must
// survive before it is reported.
func WithStabilization(d time.Duration) Option {
	return func(f *Finder) { f.stabilization = d }
}

// NewFinder builds a Finder over the given pane lister and liveness probe.
func NewFinder(panes PaneLister, procs Liveness, opts ...Option) *Finder {
	f := &Finder{
		panes:         panes,
		procs:         procs,
		clock:         clock.New(),
		pollInterval:  DefaultPollInterval,
		stabilization: DefaultStabilization,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// pane is one parsed line of the multiplexer's pane listing.
type pane struct {
	ID      string
	PID     int
	Command string
}

// FindByBinaryName polls the session's panes until one runs a command
// containing binaryName (case-insensitive substring; pane command reporting
// is platform-dependent and may include paths or argument fragments). A
// candidate must still be alive after the stabilization window, otherwise
// polling resumes: a process that crashes right after starting may be
// restarted by its wrapper and must not be reported.
func (f *Finder) FindByBinaryName(ctx context.Context, session, binaryName string, timeout time.Duration) (domain.ProcessHandle, error) {
	deadline := f.clock.Now().Add(timeout)

	for {
		lines, err := f.panes.ListPanes(session)
		if err != nil {
			return domain.ProcessHandle{}, &domain.SessionQueryError{Session: session, Cause: err}
		}

		if candidate, ok := matchPane(lines, binaryName); ok {
			f.clock.Sleep(f.stabilization)
			if f.procs.Alive(candidate.PID) {
				return domain.ProcessHandle{
					PID:          candidate.PID,
					CommandLine:  candidate.Command,
					DiscoveredAt: f.clock.Now(),
				}, nil
			}
			// Candidate died inside the settle window; keep polling.
		}

		if !f.clock.Now().Before(deadline) {
			return domain.ProcessHandle{}, &domain.DiscoveryTimeoutError{
				Session: session,
				Binary:  binaryName,
				Waited:  timeout.String(),
			}
		}

		select {
		case <-ctx.Done():
			return domain.ProcessHandle{}, ctx.Err()
		case <-f.clock.After(f.pollInterval):
		}
	}
}

// matchPane returns the first pane whose command contains binaryName.
func matchPane(lines []string, binaryName string) (pane, bool) {
	needle := strings.ToLower(binaryName)
	for _, line := range lines {
		p, ok := parsePaneLine(line)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(p.Command), needle) {
			return p, true
		}
	}
	return pane{}, false
}

// parsePaneLine parses "session:window.pane pid command" into its parts.
func parsePaneLine(line string) (pane, bool) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(fields) != 3 {
		return pane{}, false
	}
	pid, err := strconv.Atoi(fields[1])
	if err != nil || pid <= 0 {
		return pane{}, false
	}
	return pane{ID: fields[0], PID: pid, Command: fields[2]}, true
}
