package domain

import (
	"fmt"
	"time"
)

// BuildKind distinguishes simulated (SITL) firmware builds from builds
// flashed onto real hardware behind a debug probe.
type BuildKind string

const (
	BuildSimulated BuildKind = "simulated"
	BuildHardware  BuildKind = "hardware"
)

// LaunchRequest describes one debug-launch invocation. It is created by the
// caller and consumed exactly once by the coordinator.
type LaunchRequest struct {
	TargetID      string    // firmware target, e.g. "arduplane"
	BoardName     string    // board/config name, e.g. "sitl" or "CubeOrange"
	Kind          BuildKind // simulated vs hardware
	SimulationCmd string    // full simulation command line (simulated builds)
	PreLaunchTask string    // optional build/upload task reference, run by the caller
}

// Validate checks the request for fields the coordinator cannot default.
func (r *LaunchRequest) Validate() error {
	if r.TargetID == "" {
		return fmt.Errorf("launch request missing target id")
	}
	if r.Kind == BuildSimulated && r.SimulationCmd == "" {
		return fmt.Errorf("simulated launch for %s missing simulation command", r.TargetID)
	}
	return nil
}

// ProcessHandle identifies a discovered firmware process. Transient: produced
// by discovery, consumed by the attach strategy, never persisted.
type ProcessHandle struct {
	PID          int
	CommandLine  string
	DiscoveredAt time.Time
}

// ActiveSession is the coordinator-owned record of one live debug session.
type ActiveSession struct {
	Name          string // globally unique multiplexer session name
	TargetID      string
	Kind          BuildKind
	SimulationCmd string // recorded payload command, empty for hardware sessions
	RegisteredAt  time.Time
}

// SessionName derives a multiplexer session name from the target and a
// timestamp. Uniqueness against currently registered names is the caller's
// responsibility (see orchestrator.Registry.Reserve).
func SessionName(targetID string, now time.Time) string {
	return fmt.Sprintf("fcdbg-%s-%d", targetID, now.Unix())
}
