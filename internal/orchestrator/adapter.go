package orchestrator

import (
	"io"

	"github.com/vburojevic/fcdbg/internal/debugserver"
)

// SupervisorAdapter bridges the concrete debugserver.Supervisor to the
// ServerSupervisor interface.
type SupervisorAdapter struct {
	*debugserver.Supervisor
}

func (a SupervisorAdapter) Start(target, displayName, command string, args []string, sink io.Writer) (DebugServer, error) {
	srv, err := a.Supervisor.Start(target, displayName, command, args, sink)
	if err != nil {
		return nil, err
	}
	return srv, nil
}
