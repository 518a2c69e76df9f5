package cli

import (
	"github.com/vburojevic/fcdbg/internal/orchestrator"
)

// TeardownCmd runs the ordered shutdown sequence for one session.
type TeardownCmd struct {
	Session string `arg:"" help:"Session name, e.g. fcdbg-arduplane-1718000000"`
	SimCmd  string `name:"sim-cmd" help:"Payload command line to verify against the process table" default:"${config_sim_cmd}"`
}

func (c *TeardownCmd) Run(globals *Globals) error {
	w, err := buildWiring(globals, wiringOptions{})
	if err != nil {
		return err
	}
	if err := w.adoptSessions(); err != nil {
		return emitDomainError(globals, err)
	}
	if !w.registry.Contains(c.Session) {
		return outputErrorCommon(globals, "UNKNOWN_SESSION",
			"no live session named "+c.Session, "run: fcdbg sessions")
	}
	if c.SimCmd != "" {
		w.coordinator.RecordPayload(c.Session, c.SimCmd)
	}

	globals.Debug("tearing down %s", c.Session)
	if err := w.coordinator.Terminate(c.Session); err != nil {
		return emitDomainError(globals, err)
	}
	globals.writer().WriteSession(c.Session, string(orchestrator.StateCleaned), "")
	return nil
}
