package cli

import (
	"fmt"

	"github.com/vburojevic/fcdbg/internal/orchestrator"
)

// CleanupCmd kills every fcdbg session, best effort. Meant for editor
// shutdown hooks and for recovering from crashed runs.
type CleanupCmd struct{}

func (c *CleanupCmd) Run(globals *Globals) error {
	w, err := buildWiring(globals, wiringOptions{})
	if err != nil {
		return err
	}
	if err := w.adoptSessions(); err != nil {
		return emitDomainError(globals, err)
	}
	sessions := w.registry.Snapshot()
	if len(sessions) == 0 {
		if globals.resolveFormat() != "ndjson" {
			fmt.Fprintln(globals.Stdout, "Nothing to clean up.")
		}
		return nil
	}

	globals.Debug("cleaning up %d sessions", len(sessions))
	w.coordinator.CleanupAll()

	out := globals.writer()
	for _, s := range sessions {
		out.WriteSession(s.Name, string(orchestrator.StateCleaned), "")
	}
	return nil
}
