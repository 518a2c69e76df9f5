package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/fcdbg/internal/config"
	"github.com/vburojevic/fcdbg/internal/domain"
)

func testGlobals(format string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	g := &Globals{
		Format: format,
		Stdout: stdout,
		Stderr: stderr,
		Config: config.Default(),
	}
	g.logger = newAgentLogger(g)
	return g, stdout, stderr
}

func TestResolveFormat(t *testing.T) {
	t.Run("explicit format wins", func(t *testing.T) {
		g, _, _ := testGlobals("text")
		assert.Equal(t, "text", g.resolveFormat())
	})

	t.Run("auto without a terminal means ndjson", func(t *testing.T) {
		// Stdout is a buffer here, the same as a pipe to an editor.
		g, _, _ := testGlobals("auto")
		assert.Equal(t, "ndjson", g.resolveFormat())
	})
}

func TestOutputErrorCommonNDJSON(t *testing.T) {
	g, stdout, stderr := testGlobals("ndjson")

	err := outputErrorCommon(g, "PREFLIGHT", "tmux not found", "install tmux")
	require.Error(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &event))
	assert.Equal(t, "error", event["type"])
	assert.Equal(t, "PREFLIGHT", event["code"])
	assert.Equal(t, "tmux not found", event["message"])
	assert.Equal(t, "install tmux", event["hint"])
	assert.Empty(t, stderr.String())
}

func TestOutputErrorCommonText(t *testing.T) {
	g, stdout, stderr := testGlobals("text")

	err := outputErrorCommon(g, "UNKNOWN_SESSION", "no live session named x")
	require.Error(t, err)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Error [UNKNOWN_SESSION]: no live session named x")
}

func TestEmitDomainErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"preflight", &domain.PreflightError{Tool: "tmux", Hint: "install tmux"}, "PREFLIGHT"},
		{"discovery timeout", &domain.DiscoveryTimeoutError{Session: "fcdbg-arduplane-1", Binary: "arduplane", Waited: "1m0s"}, "DISCOVERY_TIMEOUT"},
		{"session query", &domain.SessionQueryError{Session: "s", Cause: errors.New("gone")}, "SESSION_QUERY"},
		{"shutdown", &domain.GracefulShutdownFailure{Session: "s", Command: "sim_vehicle.py", PIDs: []int{7}}, "SHUTDOWN_FAILED"},
		{"tool unavailable", &domain.ToolUnavailableError{Candidates: []string{"openocd", "JLinkGDBServerCLExe"}}, "TOOL_UNAVAILABLE"},
		{"anything else", errors.New("boom"), "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, stdout, _ := testGlobals("ndjson")
			require.Error(t, emitDomainError(g, tc.err))

			var event map[string]interface{}
			require.NoError(t, json.Unmarshal(stdout.Bytes(), &event))
			assert.Equal(t, tc.code, event["code"])
		})
	}
}

func TestTargetFromSession(t *testing.T) {
	assert.Equal(t, "arduplane", targetFromSession("fcdbg-arduplane-1718000000"))
	assert.Equal(t, "arduplane", targetFromSession("fcdbg-arduplane-1718000000-2"))
	assert.Equal(t, "ardu-copter", targetFromSession("fcdbg-ardu-copter-1718000000"))
	assert.Equal(t, "arduplane", targetFromSession("fcdbg-arduplane"))
}

func TestNewGlobalsMergesQuietFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Quiet = true
	g := NewGlobalsWithConfig(&CLI{Format: "ndjson"}, cfg)
	assert.True(t, g.Quiet)
	assert.Equal(t, "ndjson", g.Format)
}

func TestRequiredDebuggers(t *testing.T) {
	assert.Empty(t, requiredDebuggers(domain.BuildHardware))
	assert.NotEmpty(t, requiredDebuggers(domain.BuildSimulated))
}
