package attach

// Transport tags how the native debugger reaches the target.
type Transport string

const (
	// TransportPID attaches the debugger directly to a local process id.
	TransportPID Transport = "pid"
	// TransportTCPRemote connects to a gdb-remote stub over TCP.
	TransportTCPRemote Transport = "tcp-remote"
	// TransportHardwareServer connects through an external debug server
	// bridging a hardware probe.
	TransportHardwareServer Transport = "hardware-server"
)

// Descriptor is the attach/launch contract handed to the native debugger.
// The orchestrator never inspects it after construction.
type Descriptor struct {
	Transport     Transport `json:"transport"`
	Debugger      string    `json:"debugger"`                // "lldb" or "gdb"
	Request       string    `json:"request"`                 // "attach" or "launch"
	Name          string    `json:"name"`                    // display name
	Program       string    `json:"program,omitempty"`       // target binary path
	PID           int       `json:"pid,omitempty"`           // TransportPID only
	RemoteAddress string    `json:"remoteAddress,omitempty"` // host:port, TransportTCPRemote only
	ServerAddress string    `json:"serverAddress,omitempty"` // hardware server host:port
	StopOnEntry   bool      `json:"stopOnEntry"`
	ObjdumpPath   string    `json:"objdumpPath,omitempty"` // hardware aux tools
	NMPath        string    `json:"nmPath,omitempty"`
}
