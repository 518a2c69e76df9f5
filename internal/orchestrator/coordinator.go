// Package orchestrator drives debug sessions end to end: preflight, session
// creation, process discovery, descriptor construction and teardown.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"

	"github.com/vburojevic/fcdbg/internal/attach"
	"github.com/vburojevic/fcdbg/internal/domain"
	"github.com/vburojevic/fcdbg/internal/notify"
	"github.com/vburojevic/fcdbg/internal/toolchain"
)

// SessionType tags debug sessions created by this subsystem. Termination
// events carrying any other type are ignored.
const SessionType = "fcdbg"

// State is the per-session lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateLaunching   State = "launching"
	StateActive      State = "active"
	StateTerminating State = "terminating"
	StateCleaned     State = "cleaned"
)

// Multiplexer is the session-multiplexer surface the coordinator needs.
type Multiplexer interface {
	EnsureSession(name, workDir string) error
	RunDetached(name, command string) error
	SendInterrupt(name string) error
	Kill(name string) error
	WriteBanner(name, target, message string) error
	AttachCommand(name string) string
}

// Discoverer finds the firmware PID inside a session.
type Discoverer interface {
	FindByBinaryName(ctx context.Context, session, binaryName string, timeout time.Duration) (domain.ProcessHandle, error)
}

// ProcessTable is the process-enumeration surface used for existing-process
// detection and shutdown verification.
type ProcessTable interface {
	Alive(pid int) bool
	FindByCommandLine(pattern string) ([]int, error)
	Interrupt(pid int) error
	ForceKill(pid int) error
}

// ServerSupervisor launches hardware debug servers.
type ServerSupervisor interface {
	Start(target, displayName, command string, args []string, sink io.Writer) (DebugServer, error)
	StopTarget(target string)
}

// DebugServer is one running debug-server process.
type DebugServer interface {
	WaitReady(readyText string, timeout time.Duration) bool
	Output() string
	Stop()
}

// Confirmer asks the user a yes/no question. The CLI wires a prompt; editors
// wire a dialog.
type Confirmer interface {
	Confirm(question string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) bool

func (f ConfirmFunc) Confirm(question string) bool { return f(question) }

// Timings are the escalation and polling windows. They default from config;
// their correct values depend on firmware startup latency, so nothing here
// is hard-coded.
type Timings struct {
	DiscoveryTimeout time.Duration
	ReadyTimeout     time.Duration
	InterruptSpacing time.Duration
	RestartGrace     time.Duration
}

// DefaultTimings mirrors the empirically chosen windows.
func DefaultTimings() Timings {
	return Timings{
		DiscoveryTimeout: 60 * time.Second,
		ReadyTimeout:     10 * time.Second,
		InterruptSpacing: time.Second,
		RestartGrace:     time.Second,
	}
}

// Coordinator owns the registry of live sessions and the launch/teardown
// state machine.
type Coordinator struct {
	registry   Registry
	mux        Multiplexer
	finder     Discoverer
	strategy   *attach.Strategy
	supervisor ServerSupervisor
	procs      ProcessTable
	resolver   *toolchain.Resolver
	notifier   notify.Notifier
	confirm    Confirmer
	clock      clock.Clock
	timings    Timings

	workDir     string
	wrapEnvName string
	debuggers   []string // preflight-required native debuggers

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	session domain.ActiveSession
	state   State
	sink    io.Closer // output sink disposed during teardown, may be nil
}

// Deps bundles the coordinator's collaborators.
type Deps struct {
	Registry   Registry
	Mux        Multiplexer
	Finder     Discoverer
	Strategy   *attach.Strategy
	Supervisor ServerSupervisor
	Procs      ProcessTable
	Resolver   *toolchain.Resolver
	Notifier   notify.Notifier
	Confirm    Confirmer
	Clock      clock.Clock
	Timings    Timings

	WorkDir     string   // firmware checkout the payload runs from
	WrapEnvName string   // wrapper-prefix env var, e.g. FCDBG_WRAP
	Debuggers   []string // native debuggers required at preflight
}

// New builds a Coordinator. Zero-value timings get defaults.
func New(deps Deps) *Coordinator {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Confirm == nil {
		deps.Confirm = ConfirmFunc(func(string) bool { return false })
	}
	if deps.Timings == (Timings{}) {
		deps.Timings = DefaultTimings()
	}
	if deps.WrapEnvName == "" {
		deps.WrapEnvName = "FCDBG_WRAP"
	}
	return &Coordinator{
		registry:    deps.Registry,
		mux:         deps.Mux,
		finder:      deps.Finder,
		strategy:    deps.Strategy,
		supervisor:  deps.Supervisor,
		procs:       deps.Procs,
		resolver:    deps.Resolver,
		notifier:    deps.Notifier,
		confirm:     deps.Confirm,
		clock:       deps.Clock,
		timings:     deps.Timings,
		workDir:     deps.WorkDir,
		wrapEnvName: deps.WrapEnvName,
		debuggers:   deps.Debuggers,
		sessions:    make(map[string]*sessionState),
	}
}

// Launch runs the full launch flow for one request and returns the attach
// descriptor for the native debugger.
func (c *Coordinator) Launch(ctx context.Context, req *domain.LaunchRequest) (attach.Descriptor, error) {
	if err := req.Validate(); err != nil {
		return attach.Descriptor{}, err
	}

	// Fail fast before anything is spawned.
	required := append([]string{"tmux"}, c.debuggers...)
	if err := c.resolver.Require(required...); err != nil {
		c.notifier.Notify(notify.SeverityError, err.Error())
		return attach.Descriptor{}, err
	}

	switch req.Kind {
	case domain.BuildHardware:
		return c.launchHardware(req)
	default:
		return c.launchSimulated(ctx, req)
	}
}

func (c *Coordinator) launchSimulated(ctx context.Context, req *domain.LaunchRequest) (attach.Descriptor, error) {
	displayName := "Debug " + req.TargetID

	existing := c.findExisting(req.TargetID)
	attachToExisting := false
	if existing != nil && c.strategy.SupportsAttachToExisting() {
		// Only offered where attach is actually possible; elsewhere the
		// existing process is retired and the launch starts fresh.
		attachToExisting = c.confirm.Confirm(fmt.Sprintf(
			"%s is already running (pid %d). Attach to it instead of restarting?", req.TargetID, existing.PID))
	}

	plan, err := c.strategy.PlanSimulated(existing, attachToExisting)
	if err != nil {
		return attach.Descriptor{}, err
	}

	if plan.AttachExisting {
		// No new session; hand the debugger the running process.
		c.notifier.Notify(notify.SeverityInfo,
			fmt.Sprintf("attaching to running %s (pid %d)", req.TargetID, existing.PID))
		return c.strategy.DescriptorForPID(displayName, req.TargetID, *existing, plan.StopOnEntry), nil
	}

	if existing != nil && !attachToExisting {
		if err := c.retireExisting(req.TargetID, existing); err != nil {
			return attach.Descriptor{}, err
		}
	}

	name := c.registry.Reserve(req.TargetID, c.clock.Now())
	if err := c.mux.EnsureSession(name, c.workDir); err != nil {
		return attach.Descriptor{}, fmt.Errorf("create session %s: %w", name, err)
	}
	if err := c.mux.WriteBanner(name, req.TargetID, "simulation payload"); err != nil {
		// The banner is cosmetic; a failed echo must not abort the launch.
		c.notifier.Notify(notify.SeverityWarn, fmt.Sprintf("banner %s: %v", name, err))
	}

	payload := req.SimulationCmd
	discoveryBinary := req.TargetID
	if plan.WrapPrefix != "" {
		// The wrapper env var makes the firmware start under the
		// remote-debug stub; confirming the stub started is all the
		// discovery precision this transport needs.
		payload = fmt.Sprintf("%s='%s' %s", c.wrapEnvName, plan.WrapPrefix, payload)
		discoveryBinary = "gdbserver"
	}

	session := domain.ActiveSession{
		Name:          name,
		TargetID:      req.TargetID,
		Kind:          domain.BuildSimulated,
		SimulationCmd: req.SimulationCmd,
		RegisteredAt:  c.clock.Now(),
	}
	c.registry.Add(session)
	c.setState(session, StateLaunching, nil)

	if err := c.mux.RunDetached(name, payload); err != nil {
		return attach.Descriptor{}, fmt.Errorf("submit payload to %s: %w", name, err)
	}

	handle, err := c.finder.FindByBinaryName(ctx, name, discoveryBinary, c.timings.DiscoveryTimeout)
	if err != nil {
		// The session is left running on purpose: the pane shows why
		// the payload did not start.
		c.notifier.Notify(notify.SeverityError, fmt.Sprintf(
			"%v; session %s left running for inspection (%s)", err, name, c.mux.AttachCommand(name)))
		return attach.Descriptor{}, err
	}

	var desc attach.Descriptor
	if plan.Mode == attach.SimTCPRemote {
		desc = c.strategy.DescriptorForTCP(displayName, req.TargetID, plan.Port)
	} else {
		desc = c.strategy.DescriptorForPID(displayName, req.TargetID, handle, plan.StopOnEntry)
	}

	c.transition(name, StateActive)
	c.notifier.Notify(notify.SeverityInfo,
		fmt.Sprintf("session %s active, target pid %d", name, handle.PID))
	return desc, nil
}

func (c *Coordinator) launchHardware(req *domain.LaunchRequest) (attach.Descriptor, error) {
	displayName := "Debug " + req.TargetID + " (" + req.BoardName + ")"

	plan, err := c.strategy.PlanHardware(displayName, req.TargetID)
	if err != nil {
		c.notifier.Notify(notify.SeverityError, err.Error())
		return attach.Descriptor{}, err
	}

	server, err := c.supervisor.Start(req.TargetID, string(plan.Server.Kind), plan.Server.Command, plan.Server.Args, nil)
	if err != nil {
		return attach.Descriptor{}, err
	}

	if !server.WaitReady(plan.Server.ReadyText, c.timings.ReadyTimeout) {
		server.Stop()
		return attach.Descriptor{}, fmt.Errorf(
			"%s did not report ready (%q) within %s; output:\n%s",
			plan.Server.Command, plan.Server.ReadyText, c.timings.ReadyTimeout, server.Output())
	}

	session := domain.ActiveSession{
		Name:         c.registry.Reserve(req.TargetID, c.clock.Now()),
		TargetID:     req.TargetID,
		Kind:         domain.BuildHardware,
		RegisteredAt: c.clock.Now(),
	}
	c.registry.Add(session)
	c.setState(session, StateActive, nil)

	c.notifier.Notify(notify.SeverityInfo,
		fmt.Sprintf("%s ready on port %d", plan.Server.Command, plan.Server.Port))
	return plan.Descriptor, nil
}

// findExisting looks for an already-running firmware process for target.
func (c *Coordinator) findExisting(targetID string) *domain.ProcessHandle {
	pids, err := c.procs.FindByCommandLine(targetID)
	if err != nil || len(pids) == 0 {
		return nil
	}
	return &domain.ProcessHandle{PID: pids[0], CommandLine: targetID, DiscoveredAt: c.clock.Now()}
}

// retireExisting implements the kill-and-restart path: interrupt, wait,
// re-check, and only force-kill after explicit confirmation.
func (c *Coordinator) retireExisting(targetID string, existing *domain.ProcessHandle) error {
	if err := c.procs.Interrupt(existing.PID); err != nil {
		return err
	}
	c.clock.Sleep(c.timings.RestartGrace)
	if !c.procs.Alive(existing.PID) {
		return nil
	}
	if !c.confirm.Confirm(fmt.Sprintf("%s (pid %d) ignored the interrupt. Force kill it?", targetID, existing.PID)) {
		return fmt.Errorf("%s (pid %d) still running; not force-killing without confirmation", targetID, existing.PID)
	}
	return c.procs.ForceKill(existing.PID)
}

// Adopt registers a session discovered in the multiplexer rather than
// launched by this process, so teardown and cleanup can manage leftovers
// from earlier runs.
func (c *Coordinator) Adopt(session domain.ActiveSession) {
	if c.registry.Contains(session.Name) {
		return
	}
	c.registry.Add(session)
	c.setState(session, StateActive, nil)
}

// RecordPayload notes the payload command line of an adopted session so
// teardown can verify the process actually exited.
func (c *Coordinator) RecordPayload(name, simulationCmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[name]; ok {
		s.session.SimulationCmd = simulationCmd
	}
}

// SetSink records the output sink to dispose during teardown of name.
func (c *Coordinator) SetSink(name string, sink io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[name]; ok {
		s.sink = sink
	}
}

// SessionState reports the lifecycle state of a session.
func (c *Coordinator) SessionState(name string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[name]
	if !ok {
		return StateIdle, false
	}
	return s.state, true
}

// OnDebugSessionEnded handles a debugger-session-ended event. Sessions not
// created by this subsystem (wrong type tag) are ignored.
func (c *Coordinator) OnDebugSessionEnded(sessionType, name string) error {
	if sessionType != SessionType {
		return nil
	}
	if !c.registry.Contains(name) {
		return nil
	}
	return c.Terminate(name)
}

// Terminate runs the ordered shutdown sequence for one session:
// interrupt twice, verify the payload actually died, dispose the sink, kill
// the multiplexer session, then unregister. If the payload survives the
// interrupts, teardown halts: force-killing the firmware automatically
// could destroy unsaved debug state.
func (c *Coordinator) Terminate(name string) error {
	c.mu.Lock()
	st, ok := c.sessions[name]
	if !ok {
		st = &sessionState{session: domain.ActiveSession{Name: name}}
		c.sessions[name] = st
	}
	st.state = StateTerminating
	session := st.session
	sink := st.sink
	c.mu.Unlock()

	if session.Kind == domain.BuildHardware {
		c.supervisor.StopTarget(session.TargetID)
		c.finishCleanup(name)
		return nil
	}

	for i := 0; i < 2; i++ {
		if err := c.mux.SendInterrupt(name); err != nil {
			c.notifier.Notify(notify.SeverityWarn, fmt.Sprintf("interrupt %s: %v", name, err))
		}
		c.clock.Sleep(c.timings.InterruptSpacing)
	}

	if session.SimulationCmd != "" {
		pids, err := c.procs.FindByCommandLine(session.SimulationCmd)
		if err == nil {
			pids = lo.Filter(pids, func(pid int, _ int) bool { return c.procs.Alive(pid) })
		}
		if len(pids) > 0 {
			failure := &domain.GracefulShutdownFailure{
				Session: name,
				Command: session.SimulationCmd,
				PIDs:    pids,
			}
			c.notifier.Notify(notify.SeverityError, failure.Error())
			return failure
		}
	}

	if sink != nil {
		sink.Close()
	}

	if err := c.mux.Kill(name); err != nil {
		return fmt.Errorf("kill session %s: %w", name, err)
	}
	// Unregister synchronously with kill completion, never before: the
	// registry must only hold names whose session still exists.
	c.finishCleanup(name)
	return nil
}

// CleanupAll tears down every registered session, best effort. One stuck
// session must not block the others, so failures are collected and logged
// rather than propagated.
func (c *Coordinator) CleanupAll() {
	for _, session := range c.registry.Snapshot() {
		name := session.Name
		var err error
		if session.Kind == domain.BuildHardware {
			c.supervisor.StopTarget(session.TargetID)
		} else {
			err = c.mux.Kill(name)
		}
		if err != nil {
			// The process is exiting regardless; log and move on.
			c.notifier.Notify(notify.SeverityWarn, fmt.Sprintf("cleanup %s: %v", name, err))
		}
		c.finishCleanup(name)
	}
}

func (c *Coordinator) setState(session domain.ActiveSession, state State, sink io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.Name] = &sessionState{session: session, state: state, sink: sink}
}

func (c *Coordinator) transition(name string, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[name]; ok {
		s.state = state
	}
}

func (c *Coordinator) finishCleanup(name string) {
	c.registry.Remove(name)
	c.mu.Lock()
	if s, ok := c.sessions[name]; ok {
		s.state = StateCleaned
		s.sink = nil
	}
	c.mu.Unlock()
}
