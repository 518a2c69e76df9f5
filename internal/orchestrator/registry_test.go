package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/fcdbg/internal/domain"
)

func TestRegistryAddRemoveContains(t *testing.T) {
	r := NewRegistry()
	r.Add(domain.ActiveSession{Name: "fcdbg-arduplane-1"})

	assert.True(t, r.Contains("fcdbg-arduplane-1"))
	r.Remove("fcdbg-arduplane-1")
	assert.False(t, r.Contains("fcdbg-arduplane-1"))
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Add(domain.ActiveSession{Name: "a"})
	r.Add(domain.ActiveSession{Name: "b"})

	snap := r.Snapshot()
	require.Len(t, snap, 2)

	// Mutating the registry after snapshotting must not affect the copy.
	r.Remove("a")
	r.Remove("b")
	assert.Len(t, snap, 2)
	assert.Empty(t, r.Snapshot())
}

func TestRegistryReserveAvoidsRegisteredNames(t *testing.T) {
	r := NewRegistry()
	at := time.Unix(1700000000, 0)

	first := r.Reserve("arduplane", at)
	assert.Equal(t, "fcdbg-arduplane-1700000000", first)
	r.Add(domain.ActiveSession{Name: first})

	second := r.Reserve("arduplane", at)
	assert.Equal(t, "fcdbg-arduplane-1700000000-2", second)
	r.Add(domain.ActiveSession{Name: second})

	third := r.Reserve("arduplane", at)
	assert.Equal(t, "fcdbg-arduplane-1700000000-3", third)

	// Once released, the base name is reusable.
	r.Remove(first)
	r.Remove(second)
	assert.Equal(t, first, r.Reserve("arduplane", at))
}
