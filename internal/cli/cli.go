// Package cli defines the fcdbg command tree and wires the orchestrator.
package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/vburojevic/fcdbg/internal/config"
	"github.com/vburojevic/fcdbg/internal/notify"
	"github.com/vburojevic/fcdbg/internal/output"
)

// CLI is the top-level command structure
type CLI struct {
	// Global flags
	Format  string `help:"Output format: auto, text, ndjson" default:"${config_format}" enum:"auto,text,ndjson"`
	Quiet   bool   `short:"q" help:"Suppress informational output"`
	Verbose bool   `short:"v" help:"Enable verbose debug logging"`

	// Commands
	Launch   LaunchCmd   `cmd:"" help:"Launch a debug session and emit the attach descriptor"`
	Teardown TeardownCmd `cmd:"" help:"Tear down one debug session"`
	Sessions SessionsCmd `cmd:"" help:"List live debug sessions"`
	Cleanup  CleanupCmd  `cmd:"" help:"Kill every fcdbg session (best effort)"`
	Doctor   DoctorCmd   `cmd:"" help:"Check that required external tools are installed"`
}

// Globals carries cross-command state into Run methods
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config

	logger *agentLogger
}

// NewGlobalsWithConfig creates globals applying config fallbacks
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	g := &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}
	g.logger = newAgentLogger(g)
	return g
}

// Debug logs a verbose diagnostic line.
func (g *Globals) Debug(format string, args ...interface{}) {
	g.logger.Debug(format, args...)
}

// writer picks the output writer for the resolved format.
func (g *Globals) writer() output.Writer {
	if g.resolveFormat() == "ndjson" {
		return output.NewNDJSONWriter(g.Stdout)
	}
	return output.NewTextWriter(g.Stdout)
}

// resolveFormat maps "auto" to text on a TTY and ndjson otherwise, so
// editor/agent callers get machine-readable output without flags.
func (g *Globals) resolveFormat() string {
	if g.Format != "auto" && g.Format != "" {
		return g.Format
	}
	if f, ok := g.Stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return "text"
	}
	return "ndjson"
}

// notifier builds the user-notification sink for a command run.
func (g *Globals) notifier() notify.Notifier {
	if g.Quiet {
		return notify.Nop{}
	}
	return notify.NewDeduper(stderrNotifier{g}, g.Config.Timings.PollInterval*5, nil)
}

// stderrNotifier renders notifications on stderr, keeping stdout clean for
// the descriptor stream.
type stderrNotifier struct {
	g *Globals
}

func (n stderrNotifier) Notify(severity notify.Severity, message string) {
	switch severity {
	case notify.SeverityError:
		io.WriteString(n.g.Stderr, "Error: "+message+"\n")
	case notify.SeverityWarn:
		io.WriteString(n.g.Stderr, "Warning: "+message+"\n")
	default:
		io.WriteString(n.g.Stderr, message+"\n")
	}
}
