package domain

import "fmt"

// PreflightError reports a required external tool missing before anything was
// spawned. There is nothing to unwind when it is returned.
type PreflightError struct {
	Tool string
	Hint string
}

func (e *PreflightError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("required tool %q not found (%s)", e.Tool, e.Hint)
	}
	return fmt.Sprintf("required tool %q not found", e.Tool)
}

// DiscoveryTimeoutError reports that the firmware process never appeared in
// the multiplexer within the discovery timeout. The session is deliberately
// left running so the user can inspect why the payload did not start.
type DiscoveryTimeoutError struct {
	Session string
	Binary  string
	Waited  string
}

func (e *DiscoveryTimeoutError) Error() string {
	return fmt.Sprintf("process %q never appeared in session %q within %s", e.Binary, e.Session, e.Waited)
}

// SessionQueryError reports that the multiplexer itself could not be queried
// during discovery.
type SessionQueryError struct {
	Session string
	Cause   error
}

func (e *SessionQueryError) Error() string {
	return fmt.Sprintf("cannot query multiplexer session %q: %v", e.Session, e.Cause)
}

func (e *SessionQueryError) Unwrap() error { return e.Cause }

// GracefulShutdownFailure reports a payload process still alive after the
// interrupt escalation. Teardown halts; the user must intervene manually.
type GracefulShutdownFailure struct {
	Session string
	Command string
	PIDs    []int
}

func (e *GracefulShutdownFailure) Error() string {
	return fmt.Sprintf("payload %q in session %q still running after interrupts (pids %v); teardown halted", e.Command, e.Session, e.PIDs)
}

// ToolUnavailableError reports that no hardware debug backend is installed.
// Returned before any process is spawned.
type ToolUnavailableError struct {
	Candidates []string
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("no hardware debug server available (looked for %v)", e.Candidates)
}
