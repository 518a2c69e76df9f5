package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionName(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "fcdbg-arduplane-1700000000", SessionName("arduplane", at))
}

func TestLaunchRequestValidate(t *testing.T) {
	t.Run("rejects missing target", func(t *testing.T) {
		req := &LaunchRequest{Kind: BuildHardware}
		require.Error(t, req.Validate())
	})

	t.Run("rejects simulated launch without command", func(t *testing.T) {
		req := &LaunchRequest{TargetID: "arduplane", Kind: BuildSimulated}
		require.Error(t, req.Validate())
	})

	t.Run("accepts hardware launch without command", func(t *testing.T) {
		req := &LaunchRequest{TargetID: "arducopter", Kind: BuildHardware}
		require.NoError(t, req.Validate())
	})

	t.Run("accepts simulated launch with command", func(t *testing.T) {
		req := &LaunchRequest{
			TargetID:      "arduplane",
			Kind:          BuildSimulated,
			SimulationCmd: "sim_vehicle.py -v ArduPlane --console",
		}
		require.NoError(t, req.Validate())
	})
}
