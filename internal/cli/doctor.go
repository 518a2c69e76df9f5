package cli

import (
	"fmt"
	goruntime "runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/fcdbg/internal/toolchain"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// DoctorCmd reports which external tools are installed, before any launch
// has a chance to fail on them.
type DoctorCmd struct{}

func (c *DoctorCmd) Run(globals *Globals) error {
	resolver := toolchain.NewResolver(nil)

	tools := []string{"tmux"}
	if goruntime.GOOS == "darwin" {
		tools = append(tools, "lldb")
	} else {
		tools = append(tools, "gdb", "gdbserver")
	}
	tools = append(tools, toolchain.CrossPrefix+"gdb", "openocd", "JLinkGDBServerCLExe")

	missing := 0
	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("TOOL", "STATUS", "HINT")
	for _, tool := range tools {
		if resolver.Available(tool) {
			table.Append([]string{tool, okStyle.Render("ok"), ""})
			continue
		}
		missing++
		table.Append([]string{tool, missingStyle.Render("missing"), toolchain.Hint(tool)})
	}
	if err := table.Render(); err != nil {
		return err
	}

	if cross, ok := resolver.DetectCross(); ok {
		fmt.Fprintf(globals.Stdout, "Cross toolchain: %s\n", cross.GDB)
	}
	if missing > 0 {
		fmt.Fprintf(globals.Stdout, "%d tool(s) missing. Hardware debugging needs openocd or the J-Link server; everything else above is required.\n", missing)
	}
	return nil
}
