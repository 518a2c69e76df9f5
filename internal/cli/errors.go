package cli

import (
	"errors"
	"fmt"

	"github.com/vburojevic/fcdbg/internal/domain"
	"github.com/vburojevic/fcdbg/internal/output"
)

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so editor integrations always get machine-readable
// failures.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	if globals != nil && globals.resolveFormat() == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteError(code, message, hint...)
	} else if globals != nil {
		fmt.Fprintf(globals.Stderr, "Error [%s]: %s", code, message)
		if len(hint) > 0 && hint[0] != "" {
			fmt.Fprintf(globals.Stderr, " (hint: %s)", hint[0])
		}
		fmt.Fprintln(globals.Stderr)
	}
	return errors.New(message)
}

// emitDomainError classifies orchestrator failures into stable codes.
func emitDomainError(globals *Globals, err error) error {
	var preflight *domain.PreflightError
	var timeout *domain.DiscoveryTimeoutError
	var query *domain.SessionQueryError
	var shutdown *domain.GracefulShutdownFailure
	var noTool *domain.ToolUnavailableError
	switch {
	case errors.As(err, &preflight):
		return outputErrorCommon(globals, "PREFLIGHT", err.Error(), preflight.Hint)
	case errors.As(err, &timeout):
		return outputErrorCommon(globals, "DISCOVERY_TIMEOUT", err.Error(),
			fmt.Sprintf("inspect the session with: tmux attach -t %s", timeout.Session))
	case errors.As(err, &query):
		return outputErrorCommon(globals, "SESSION_QUERY", err.Error())
	case errors.As(err, &shutdown):
		return outputErrorCommon(globals, "SHUTDOWN_FAILED", err.Error(),
			"the simulator is still running; stop it manually before retrying")
	case errors.As(err, &noTool):
		return outputErrorCommon(globals, "TOOL_UNAVAILABLE", err.Error())
	default:
		return outputErrorCommon(globals, "INTERNAL", err.Error())
	}
}
