package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/fcdbg/internal/orchestrator"
)

var sessionsTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

// SessionsCmd lists every live fcdbg session in the multiplexer.
type SessionsCmd struct{}

func (c *SessionsCmd) Run(globals *Globals) error {
	w, err := buildWiring(globals, wiringOptions{})
	if err != nil {
		return err
	}
	if err := w.adoptSessions(); err != nil {
		return emitDomainError(globals, err)
	}
	sessions := w.registry.Snapshot()

	if globals.resolveFormat() == "ndjson" {
		out := globals.writer()
		for _, s := range sessions {
			out.WriteSession(s.Name, string(orchestrator.StateActive), w.mux.AttachCommand(s.Name))
		}
		return nil
	}

	if len(sessions) == 0 {
		fmt.Fprintln(globals.Stdout, "No live debug sessions.")
		return nil
	}
	fmt.Fprintln(globals.Stdout, sessionsTitle.Render(fmt.Sprintf("Live debug sessions (%d)", len(sessions))))
	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("SESSION", "TARGET", "ATTACH")
	for _, s := range sessions {
		table.Append([]string{s.Name, s.TargetID, w.mux.AttachCommand(s.Name)})
	}
	return table.Render()
}
