// Package toolchain locates external tools the orchestrator depends on:
// the multiplexer, the native debugger and the cross toolchain used for
// hardware debugging.
package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vburojevic/fcdbg/internal/domain"
)

// CrossPrefix is the bare-metal ARM toolchain prefix used by flight
// controller firmware builds.
const CrossPrefix = "arm-none-eabi-"

// LookPath resolves an executable name to a path, normally exec.LookPath.
type LookPath func(name string) (string, error)

// installHints maps tool names to a short pointer for the preflight error.
var installHints = map[string]string{
	"tmux":                "install tmux via your package manager",
	"lldb":                "install Xcode command line tools",
	"gdb":                 "install gdb via your package manager",
	"gdbserver":           "install gdbserver via your package manager",
	CrossPrefix + "gdb":   "install the gcc-arm-none-eabi toolchain",
	"openocd":             "install openocd via your package manager",
	"JLinkGDBServerCLExe": "install the SEGGER J-Link software pack",
}

// Hint returns the install pointer for a known tool, or "".
func Hint(tool string) string {
	return installHints[tool]
}

// Resolver answers tool-location queries against PATH.
type Resolver struct {
	lookPath LookPath
}

// NewResolver builds a Resolver. A nil lookPath uses exec.LookPath.
func NewResolver(lookPath LookPath) *Resolver {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &Resolver{lookPath: lookPath}
}

// Available reports whether the named tool is on PATH.
func (r *Resolver) Available(tool string) bool {
	_, err := r.lookPath(tool)
	return err == nil
}

// Require verifies every named tool is present before anything is spawned.
// The first missing tool is reported as a PreflightError.
func (r *Resolver) Require(tools ...string) error {
	for _, tool := range tools {
		if !r.Available(tool) {
			return &domain.PreflightError{Tool: tool, Hint: installHints[tool]}
		}
	}
	return nil
}

// Cross describes a located cross toolchain.
type Cross struct {
	GDB string // full path to the cross gdb
	dir string
}

// DetectCross locates the cross toolchain via its gdb.
func (r *Resolver) DetectCross() (*Cross, bool) {
	path, err := r.lookPath(CrossPrefix + "gdb")
	if err != nil {
		return nil, false
	}
	return &Cross{GDB: path, dir: filepath.Dir(path)}, true
}

// AuxTool resolves a sibling tool (objdump, nm, ...) from the toolchain
// directory, falling back to the bare prefixed name when the sibling is not
// where gdb is. The descriptor stays usable either way; PATH resolution
// happens in the debugger.
func (c *Cross) AuxTool(name string) string {
	candidate := filepath.Join(c.dir, CrossPrefix+name)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return CrossPrefix + name
}
