package procs

import (
	"os/exec"
	"strings"
)

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// Run executes a command and returns its combined output, trimmed.
func (ExecRunner) Run(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
