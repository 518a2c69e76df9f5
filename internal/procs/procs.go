// Package procs shells out to the OS process table for liveness checks,
// command-line lookups and signal delivery.
package procs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/samber/lo"
)

// Runner abstracts command execution for testability.
type Runner interface {
	Run(name string, args ...string) (string, error)
}

// Enumerator queries and signals OS processes.
type Enumerator struct {
	runner Runner
}

// New returns an Enumerator backed by the given runner.
func New(runner Runner) *Enumerator {
	return &Enumerator{runner: runner}
}

// Alive reports whether pid refers to a live process (signal 0 probe).
func (e *Enumerator) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	// EPERM means the process exists but belongs to another user.
	return err == nil || err == syscall.EPERM
}

// CommandLine returns the full command line of pid.
func (e *Enumerator) CommandLine(pid int) (string, error) {
	out, err := e.runner.Run("ps", "-o", "command=", "-p", strconv.Itoa(pid))
	if err != nil {
		return "", fmt.Errorf("ps for pid %d: %w", pid, err)
	}
	line := strings.TrimSpace(out)
	if line == "" {
		return "", fmt.Errorf("pid %d not found", pid)
	}
	return line, nil
}

// FindByCommandLine returns the PIDs of all live processes whose command line
// contains pattern (case-insensitive). The calling process and its parent are
// excluded: the orchestrator's own argv names the firmware target, and the
// shell that launched it repeats the whole command line, so without the
// exclusion every launch would find itself as the running firmware.
func (e *Enumerator) FindByCommandLine(pattern string) ([]int, error) {
	out, err := e.runner.Run("ps", "axo", "pid=,command=")
	if err != nil {
		return nil, fmt.Errorf("ps listing: %w", err)
	}

	self, parent := os.Getpid(), os.Getppid()
	needle := strings.ToLower(pattern)
	lines := lo.Filter(strings.Split(out, "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})

	var pids []int
	for _, line := range lines {
		fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
		if len(fields) != 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil || pid == self || pid == parent {
			continue
		}
		if strings.Contains(strings.ToLower(fields[1]), needle) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

// Interrupt sends SIGINT to pid, requesting graceful shutdown.
func (e *Enumerator) Interrupt(pid int) error {
	if err := syscall.Kill(pid, syscall.SIGINT); err != nil {
		return fmt.Errorf("interrupt pid %d: %w", pid, err)
	}
	return nil
}

// ForceKill sends SIGKILL to pid. Last resort only; callers must have
// confirmed with the user first.
func (e *Enumerator) ForceKill(pid int) error {
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}
