// Package debugserver spawns and supervises external debug servers
// (OpenOCD, JLink) for hardware debugging.
package debugserver

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/fcdbg/internal/notify"
	"github.com/vburojevic/fcdbg/internal/watch"
)

// pseudoConsoleEnv makes servers believe they run in an interactive
// terminal, so they keep their human-readable, colorized output.
var pseudoConsoleEnv = []string{
	"TERM=xterm-256color",
	"COLUMNS=120",
	"LINES=30",
	"FORCE_COLOR=1",
	"CLICOLOR_FORCE=1",
}

// DefaultStopGrace is how long a stopped server gets to exit on SIGTERM
// before SIGKILL. The right value depends on how slowly the probe bridge
// detaches, so it is overridable.
const DefaultStopGrace = 3 * time.Second

// Supervisor owns at most one debug server per debug target. Starting a new
// server for a target stops the previous one first (last-writer-wins).
type Supervisor struct {
	mu        sync.Mutex
	clock     clock.Clock
	notifier  notify.Notifier
	stopGrace time.Duration
	active    map[string]*Server
}

// Option adjusts Supervisor construction.
type Option func(*Supervisor)

// WithStopGrace overrides the SIGTERM-to-SIGKILL window.
func WithStopGrace(d time.Duration) Option {
	return func(s *Supervisor) { s.stopGrace = d }
}

// NewSupervisor builds a Supervisor reporting through notifier.
func NewSupervisor(notifier notify.Notifier, clk clock.Clock, opts ...Option) *Supervisor {
	if clk == nil {
		clk = clock.New()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Supervisor{
		clock:     clk,
		notifier:  notifier,
		stopGrace: DefaultStopGrace,
		active:    make(map[string]*Server),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Server is one supervised debug-server process.
type Server struct {
	displayName string
	target      string
	cmd         *exec.Cmd
	watcher     *watch.Watcher
	sink        io.Writer
	notifier    notify.Notifier
	clock       clock.Clock
	stopGrace   time.Duration

	stopOnce sync.Once
	stopping atomic.Bool
	done     chan struct{}
}

// Start spawns the server under a pseudo-console environment, teeing its
// output into a ready-text watcher and the display sink. Any server already
// running for the same target is stopped first.
func (s *Supervisor) Start(target, displayName, command string, args []string, sink io.Writer) (*Server, error) {
	s.mu.Lock()
	if prev, ok := s.active[target]; ok {
		delete(s.active, target)
		s.mu.Unlock()
		prev.Stop()
		s.mu.Lock()
	}

	if sink == nil {
		sink = io.Discard
	}

	srv := &Server{
		displayName: displayName,
		target:      target,
		watcher:     watch.New(s.clock),
		sink:        sink,
		notifier:    s.notifier,
		clock:       s.clock,
		stopGrace:   s.stopGrace,
		done:        make(chan struct{}),
	}

	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), pseudoConsoleEnv...)
	out := io.MultiWriter(srv.watcher, sink)
	cmd.Stdout = out
	cmd.Stderr = out
	srv.cmd = cmd

	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("start %s: %w", displayName, err)
	}
	s.active[target] = srv
	s.mu.Unlock()

	s.notifier.Notify(notify.SeverityInfo, fmt.Sprintf("%s started (pid %d)", displayName, cmd.Process.Pid))
	go srv.supervise()
	return srv, nil
}

// Active returns the running server for target, if any.
func (s *Supervisor) Active(target string) (*Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.active[target]
	return srv, ok
}

// StopTarget stops the server supervised for target, if any.
func (s *Supervisor) StopTarget(target string) {
	s.mu.Lock()
	srv, ok := s.active[target]
	if ok {
		delete(s.active, target)
	}
	s.mu.Unlock()
	if ok {
		srv.Stop()
	}
}

// StopAll stops every supervised server.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	servers := make([]*Server, 0, len(s.active))
	for target, srv := range s.active {
		servers = append(servers, srv)
		delete(s.active, target)
	}
	s.mu.Unlock()

	for _, srv := range servers {
		srv.Stop()
	}
}

// supervise applies the exit-code policy once the process ends: a clean exit
// closes the owning terminal sink, a failure keeps output visible and
// appends a diagnostic banner so the start failure can be debugged.
func (srv *Server) supervise() {
	err := srv.cmd.Wait()
	defer close(srv.done)

	if srv.stopping.Load() {
		// Deliberate shutdown; exit status is not a failure.
		return
	}

	if err == nil {
		srv.notifier.Notify(notify.SeverityInfo, srv.displayName+" exited cleanly")
		if closer, ok := srv.sink.(io.Closer); ok {
			closer.Close()
		}
		return
	}

	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	banner := fmt.Sprintf("\n--- %s exited with code %d ---\n", srv.displayName, exitCode)
	io.WriteString(srv.sink, banner)
	srv.notifier.Notify(notify.SeverityError,
		fmt.Sprintf("%s failed (exit code %d); output left open for inspection", srv.displayName, exitCode))
}

// WaitReady blocks until the server printed readyText or timeout elapsed.
// An empty readyText means the server has no readiness gate.
func (srv *Server) WaitReady(readyText string, timeout time.Duration) bool {
	return srv.watcher.WaitFor(readyText, timeout)
}

// Output returns everything the server printed so far.
func (srv *Server) Output() string {
	return srv.watcher.Contents()
}

// Stop terminates the server. Safe to call multiple times and after the
// process already exited.
func (srv *Server) Stop() {
	srv.stopOnce.Do(func() {
		select {
		case <-srv.done:
			return
		default:
		}
		srv.stopping.Store(true)
		if srv.cmd.Process != nil {
			srv.cmd.Process.Signal(syscall.SIGTERM)
		}
		select {
		case <-srv.done:
		case <-srv.clock.After(srv.stopGrace):
			if srv.cmd.Process != nil {
				srv.cmd.Process.Kill()
			}
			<-srv.done
		}
	})
}
