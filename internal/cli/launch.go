package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	goruntime "runtime"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/vburojevic/fcdbg/internal/attach"
	"github.com/vburojevic/fcdbg/internal/debugserver"
	"github.com/vburojevic/fcdbg/internal/discover"
	"github.com/vburojevic/fcdbg/internal/domain"
	"github.com/vburojevic/fcdbg/internal/orchestrator"
	"github.com/vburojevic/fcdbg/internal/procs"
	"github.com/vburojevic/fcdbg/internal/tmux"
	"github.com/vburojevic/fcdbg/internal/toolchain"
)

// LaunchCmd starts a debug session for one firmware target and prints the
// attach descriptor the native debugger consumes.
type LaunchCmd struct {
	Target   string `arg:"" help:"Firmware target to debug, e.g. arduplane"`
	Board    string `help:"Board/config name" default:"${config_board}"`
	Hardware bool   `help:"Debug firmware on real hardware instead of the simulator"`
	SimCmd   string `name:"sim-cmd" help:"Simulation command line (defaults to sim_vehicle.py -v <target>)" default:"${config_sim_cmd}"`
	WorkDir  string `name:"work-dir" help:"Firmware checkout the payload runs from" default:"${config_work_dir}"`
	Server   string `help:"Preferred hardware debug server" default:"${config_server}" enum:"openocd,jlink"`
	Yes      bool   `short:"y" help:"Answer yes to confirmation prompts"`
}

func (c *LaunchCmd) Run(globals *Globals) error {
	req := &domain.LaunchRequest{
		TargetID:      c.Target,
		BoardName:     c.Board,
		Kind:          domain.BuildSimulated,
		SimulationCmd: c.SimCmd,
	}
	if c.Hardware {
		req.Kind = domain.BuildHardware
		req.SimulationCmd = ""
	} else if req.SimulationCmd == "" {
		req.SimulationCmd = "sim_vehicle.py -v " + c.Target
	}

	w, err := buildWiring(globals, wiringOptions{
		Confirm:         promptConfirmer(globals, c.Yes),
		WorkDir:         c.WorkDir,
		PreferredServer: attach.ServerKind(c.Server),
		Debuggers:       requiredDebuggers(req.Kind),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	globals.Debug("launching %s (%s, board %s)", req.TargetID, req.Kind, req.BoardName)
	desc, err := w.coordinator.Launch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted mid-launch; nothing half-created may survive.
			w.coordinator.CleanupAll()
		}
		return emitDomainError(globals, err)
	}

	out := globals.writer()
	if err := out.WriteDescriptor(desc); err != nil {
		return err
	}
	for _, s := range w.registry.Snapshot() {
		out.WriteSession(s.Name, string(orchestrator.StateActive), w.mux.AttachCommand(s.Name))
	}
	return nil
}

// requiredDebuggers lists the native debuggers preflight insists on before
// any session is created. Hardware launches defer tool checks to the
// server-selection step, which knows about cross-toolchain fallbacks.
func requiredDebuggers(kind domain.BuildKind) []string {
	if kind == domain.BuildHardware {
		return nil
	}
	if goruntime.GOOS == "darwin" {
		return []string{"lldb"}
	}
	return []string{"gdb", "gdbserver"}
}

// wiring holds the assembled collaborators behind one command run.
type wiring struct {
	coordinator *orchestrator.Coordinator
	registry    *orchestrator.MemoryRegistry
	mux         *tmux.Manager
	supervisor  *debugserver.Supervisor
}

type wiringOptions struct {
	Confirm         orchestrator.Confirmer
	WorkDir         string
	PreferredServer attach.ServerKind
	Debuggers       []string
}

func buildWiring(g *Globals, opts wiringOptions) (*wiring, error) {
	cfg := g.Config

	resolver := toolchain.NewResolver(nil)
	if err := resolver.Require("tmux"); err != nil {
		return nil, emitDomainError(g, err)
	}
	mux, err := tmux.NewManager(tmux.WithSettleDelay(cfg.Timings.SettleDelay))
	if err != nil {
		return nil, outputErrorCommon(g, "PREFLIGHT", err.Error())
	}

	notifier := g.notifier()
	table := procs.New(procs.ExecRunner{})
	finder := discover.NewFinder(mux, table,
		discover.WithPollInterval(cfg.Timings.PollInterval),
		discover.WithStabilization(cfg.Timings.Stabilization))
	supervisor := debugserver.NewSupervisor(notifier, nil,
		debugserver.WithStopGrace(cfg.Timings.StopGrace))

	var strategyOpts []attach.Option
	if opts.PreferredServer != "" {
		strategyOpts = append(strategyOpts, attach.WithPreferredServer(opts.PreferredServer))
	}

	registry := orchestrator.NewRegistry()
	coordinator := orchestrator.New(orchestrator.Deps{
		Registry:   registry,
		Mux:        mux,
		Finder:     finder,
		Strategy:   attach.NewStrategy(resolver, strategyOpts...),
		Supervisor: orchestrator.SupervisorAdapter{Supervisor: supervisor},
		Procs:      table,
		Resolver:   resolver,
		Notifier:   notifier,
		Confirm:    opts.Confirm,
		Timings: orchestrator.Timings{
			DiscoveryTimeout: cfg.Timings.DiscoveryTimeout,
			ReadyTimeout:     cfg.Timings.ReadyTimeout,
			InterruptSpacing: cfg.Timings.InterruptSpacing,
			RestartGrace:     cfg.Timings.RestartGrace,
		},
		WorkDir:     opts.WorkDir,
		WrapEnvName: cfg.Defaults.WrapEnv,
		Debuggers:   opts.Debuggers,
	})

	return &wiring{
		coordinator: coordinator,
		registry:    registry,
		mux:         mux,
		supervisor:  supervisor,
	}, nil
}

// adoptSessions registers every live fcdbg session from the multiplexer so
// management commands can operate on sessions created by earlier runs.
func (w *wiring) adoptSessions() error {
	names, err := w.mux.ListSessions()
	if err != nil {
		return err
	}
	for _, name := range names {
		w.coordinator.Adopt(domain.ActiveSession{
			Name:     strings.TrimSpace(name),
			TargetID: targetFromSession(name),
			Kind:     domain.BuildSimulated,
		})
	}
	return nil
}

// targetFromSession recovers the target id from a "fcdbg-<target>-<ts>"
// name, dropping the timestamp and any collision suffix.
func targetFromSession(name string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(name), tmux.SessionPrefix)
	parts := strings.Split(trimmed, "-")
	for len(parts) > 1 && isDigits(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "-")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// promptConfirmer asks yes/no questions on the terminal. Non-interactive
// callers get a deny-all unless --yes was passed.
func promptConfirmer(g *Globals, assumeYes bool) orchestrator.ConfirmFunc {
	return func(question string) bool {
		if assumeYes {
			return true
		}
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return false
		}
		fmt.Fprintf(g.Stderr, "%s [y/N] ", question)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
