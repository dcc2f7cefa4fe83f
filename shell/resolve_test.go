package shell

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFakeShell(t *testing.T, dir, name string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func TestResolvePrefersPwsh(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test fakes executables with shell scripts")
	}

	dir := t.TempDir()
	pwshPath := writeFakeShell(t, dir, "pwsh")
	writeFakeShell(t, dir, "powershell")
	t.Setenv("PATH", dir)

	exe := Resolve(zaptest.NewLogger(t).Sugar())
	require.NotNil(t, exe)
	assert.Equal(t, VariantPwsh, exe.Variant)
	assert.Equal(t, pwshPath, exe.Path)
}

func TestResolveFallsBackToWindowsPowerShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test fakes executables with shell scripts")
	}

	dir := t.TempDir()
	writeFakeShell(t, dir, "powershell")
	t.Setenv("PATH", dir)

	exe := Resolve(zaptest.NewLogger(t).Sugar())
	require.NotNil(t, exe)
	assert.Equal(t, VariantWindowsPowerShell, exe.Variant)
}

func TestResolveNoneFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	exe := Resolve(zaptest.NewLogger(t).Sugar())
	assert.Nil(t, exe)
}
