// Package attach decides, per OS and build kind, how the native debugger
// reaches the firmware process, and builds the resulting descriptor. The
// whole decision matrix lives here so it is unit-testable without spawning
// anything.
package attach

import (
	"fmt"
	"net"
	"runtime"

	"github.com/vburojevic/fcdbg/internal/domain"
	"github.com/vburojevic/fcdbg/internal/toolchain"
)

// Fixed gdb ports of the supported hardware debug servers.
const (
	OpenOCDPort = 3333
	JLinkPort   = 2331
)

// SimMode tags the simulated-build attach mechanism.
type SimMode string

const (
	// SimPIDAttach discovers the firmware PID and attaches directly
	// (macOS, where lldb PID attach is reliable).
	SimPIDAttach SimMode = "pid-attach"
	// SimTCPRemote wraps the firmware in a gdb-remote stub on an
	// ephemeral port and connects over TCP (everything else).
	SimTCPRemote SimMode = "tcp-remote"
)

// SimPlan is the pre-launch decision for a simulated build.
type SimPlan struct {
	Mode SimMode
	// Port is the allocated ephemeral port, SimTCPRemote only.
	Port int
	// WrapPrefix is the remote-debug stub invocation injected via the
	// wrapper env var so the payload starts under the stub.
	WrapPrefix string
	// AttachExisting means skip starting a new session and attach to the
	// process that is already running.
	AttachExisting bool
	// StopOnEntry is propagated into the descriptor.
	StopOnEntry bool
}

// ServerKind names a hardware debug server backend.
type ServerKind string

const (
	ServerOpenOCD ServerKind = "openocd"
	ServerJLink   ServerKind = "jlink"
)

// ServerChoice describes the hardware debug server to supervise.
type ServerChoice struct {
	Kind      ServerKind
	Command   string
	Args      []string
	Port      int
	ReadyText string
}

// HardwarePlan bundles the server to launch with the descriptor pointing
// at it.
type HardwarePlan struct {
	Server     ServerChoice
	Descriptor Descriptor
}

// Strategy selects attach transports. GOOS and the port allocator are
// injectable for tests.
type Strategy struct {
	resolver        *toolchain.Resolver
	goos            string
	preferredServer ServerKind
	allocatePort    func() (int, error)
}

// Option adjusts Strategy construction.
type Option func(*Strategy)

// WithGOOS overrides the detected operating system.
func WithGOOS(goos string) Option {
	return func(s *Strategy) { s.goos = goos }
}

// WithPreferredServer picks the hardware backend when both are installed.
func WithPreferredServer(kind ServerKind) Option {
	return func(s *Strategy) { s.preferredServer = kind }
}

// WithPortAllocator overrides ephemeral port allocation.
func WithPortAllocator(fn func() (int, error)) Option {
	return func(s *Strategy) { s.allocatePort = fn }
}

// NewStrategy builds a Strategy over the given tool resolver.
func NewStrategy(resolver *toolchain.Resolver, opts ...Option) *Strategy {
	s := &Strategy{
		resolver:     resolver,
		goos:         runtime.GOOS,
		allocatePort: ephemeralPort,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SupportsAttachToExisting reports whether this platform can adopt an
// already-running firmware process instead of restarting it. Only the PID
// transport can; the gdb-remote wrapper has to start the payload itself.
func (s *Strategy) SupportsAttachToExisting() bool {
	return s.goos == "darwin"
}

// PlanSimulated applies the simulated-build rows of the decision table.
// existing is the already-running firmware process, if one was found before
// launch; attachToExisting is the user's choice when prompted (ignored when
// existing is nil).
func (s *Strategy) PlanSimulated(existing *domain.ProcessHandle, attachToExisting bool) (SimPlan, error) {
	if s.goos == "darwin" {
		if existing != nil && attachToExisting {
			return SimPlan{Mode: SimPIDAttach, AttachExisting: true, StopOnEntry: true}, nil
		}
		return SimPlan{Mode: SimPIDAttach}, nil
	}

	// Non-macOS: PID attach to a SITL process is unreliable, so wrap the
	// payload in a gdb-remote stub on an ephemeral port instead.
	port, err := s.allocatePort()
	if err != nil {
		return SimPlan{}, fmt.Errorf("allocate gdb-remote port: %w", err)
	}
	return SimPlan{
		Mode:       SimTCPRemote,
		Port:       port,
		WrapPrefix: fmt.Sprintf("gdbserver :%d", port),
	}, nil
}

// DescriptorForPID builds the PID-attach descriptor (macOS simulated rows).
func (s *Strategy) DescriptorForPID(name, program string, handle domain.ProcessHandle, stopOnEntry bool) Descriptor {
	return Descriptor{
		Transport:   TransportPID,
		Debugger:    "lldb",
		Request:     "attach",
		Name:        name,
		Program:     program,
		PID:         handle.PID,
		StopOnEntry: stopOnEntry,
	}
}

// DescriptorForTCP builds the gdb-remote descriptor (non-macOS simulated
// row). No pid field: confirming the wrapped process started is all the
// precision this transport needs.
func (s *Strategy) DescriptorForTCP(name, program string, port int) Descriptor {
	return Descriptor{
		Transport:     TransportTCPRemote,
		Debugger:      "gdb",
		Request:       "attach",
		Name:          name,
		Program:       program,
		RemoteAddress: fmt.Sprintf("localhost:%d", port),
	}
}

// PlanHardware selects the external debug server and builds the descriptor
// bound to its fixed port. Fails fast with ToolUnavailableError when neither
// backend is installed, before any process is spawned.
func (s *Strategy) PlanHardware(name, program string) (HardwarePlan, error) {
	choice, err := s.chooseServer()
	if err != nil {
		return HardwarePlan{}, err
	}

	desc := Descriptor{
		Transport:     TransportHardwareServer,
		Debugger:      "gdb",
		Request:       "attach",
		Name:          name,
		Program:       program,
		ServerAddress: fmt.Sprintf("localhost:%d", choice.Port),
		ObjdumpPath:   toolchain.CrossPrefix + "objdump",
		NMPath:        toolchain.CrossPrefix + "nm",
	}
	if cross, ok := s.resolver.DetectCross(); ok {
		desc.ObjdumpPath = cross.AuxTool("objdump")
		desc.NMPath = cross.AuxTool("nm")
	}

	return HardwarePlan{Server: choice, Descriptor: desc}, nil
}

func (s *Strategy) chooseServer() (ServerChoice, error) {
	openocd := s.resolver.Available("openocd")
	jlink := s.resolver.Available("JLinkGDBServerCLExe")

	useOpenOCD := openocd
	if openocd && jlink && s.preferredServer == ServerJLink {
		useOpenOCD = false
	}

	switch {
	case useOpenOCD:
		return ServerChoice{
			Kind:      ServerOpenOCD,
			Command:   "openocd",
			Args:      []string{"-f", "interface/stlink.cfg", "-f", "target/stm32h7x.cfg"},
			Port:      OpenOCDPort,
			ReadyText: fmt.Sprintf("Listening on port %d for gdb connections", OpenOCDPort),
		}, nil
	case jlink:
		return ServerChoice{
			Kind:      ServerJLink,
			Command:   "JLinkGDBServerCLExe",
			Args:      []string{"-if", "swd", "-port", fmt.Sprint(JLinkPort)},
			Port:      JLinkPort,
			ReadyText: "Waiting for GDB connection",
		}, nil
	default:
		return ServerChoice{}, &domain.ToolUnavailableError{Candidates: []string{"openocd", "JLinkGDBServerCLExe"}}
	}
}

// ephemeralPort asks the kernel for a free TCP port and releases it again.
func ephemeralPort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
