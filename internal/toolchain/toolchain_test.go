package toolchain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/fcdbg/internal/domain"
)

func stubLookPath(found map[string]string) LookPath {
	return func(name string) (string, error) {
		if path, ok := found[name]; ok {
			return path, nil
		}
		return "", errors.New("not found")
	}
}

func TestRequire(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		r := NewResolver(stubLookPath(map[string]string{"tmux": "/usr/bin/tmux", "lldb": "/usr/bin/lldb"}))
		require.NoError(t, r.Require("tmux", "lldb"))
	})

	t.Run("missing tool yields preflight error with hint", func(t *testing.T) {
		r := NewResolver(stubLookPath(map[string]string{"lldb": "/usr/bin/lldb"}))
		err := r.Require("tmux", "lldb")
		var pf *domain.PreflightError
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, "tmux", pf.Tool)
		assert.Contains(t, pf.Error(), "package manager")
	})
}

func TestDetectCross(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		r := NewResolver(stubLookPath(nil))
		_, ok := r.DetectCross()
		assert.False(t, ok)
	})

	t.Run("present", func(t *testing.T) {
		r := NewResolver(stubLookPath(map[string]string{
			CrossPrefix + "gdb": "/opt/gcc-arm/bin/arm-none-eabi-gdb",
		}))
		cross, ok := r.DetectCross()
		require.True(t, ok)
		assert.Equal(t, "/opt/gcc-arm/bin/arm-none-eabi-gdb", cross.GDB)
	})
}

func TestAuxTool(t *testing.T) {
	dir := t.TempDir()
	gdb := filepath.Join(dir, CrossPrefix+"gdb")
	objdump := filepath.Join(dir, CrossPrefix+"objdump")
	require.NoError(t, os.WriteFile(gdb, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(objdump, []byte("#!/bin/sh\n"), 0o755))

	r := NewResolver(stubLookPath(map[string]string{CrossPrefix + "gdb": gdb}))
	cross, ok := r.DetectCross()
	require.True(t, ok)

	t.Run("sibling resolved from toolchain dir", func(t *testing.T) {
		assert.Equal(t, objdump, cross.AuxTool("objdump"))
	})

	t.Run("missing sibling falls back to bare name", func(t *testing.T) {
		assert.Equal(t, CrossPrefix+"nm", cross.AuxTool("nm"))
	})
}
