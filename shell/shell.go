// Package shell executes PowerShell scripts against a locally installed
// shell and formats their captured output for a remote caller.
package shell

import (
	"os/exec"

	"go.uber.org/zap"
)

// Variant identifies a known PowerShell flavor.
type Variant string

const (
	// VariantPwsh is PowerShell 7+ (cross-platform).
	VariantPwsh Variant = "pwsh"
	// VariantWindowsPowerShell is Windows PowerShell 5.1.
	VariantWindowsPowerShell Variant = "powershell"
)

// Executable is a resolved PowerShell binary. It is resolved once at startup
// and treated as immutable afterwards; if the binary disappears later, runs
// fail at spawn time rather than triggering a re-resolution.
type Executable struct {
	Variant Variant
	Path    string
}

// resolution candidates, in priority order
var candidates = []Variant{VariantPwsh, VariantWindowsPowerShell}

// Resolve locates the best available PowerShell executable on the host PATH,
// preferring pwsh over the legacy powershell. It returns nil when neither is
// installed; absence is a normal outcome that callers must handle.
func Resolve(log *zap.SugaredLogger) *Executable {
	for _, v := range candidates {
		path, err := exec.LookPath(string(v))
		if err != nil {
			continue
		}
		log.Infow("resolved PowerShell executable", "Variant", string(v), "Path", path)
		return &Executable{Variant: v, Path: path}
	}
	log.Error("no PowerShell executable found on PATH")
	return nil
}

// Invocation builds the argument vector for running the given script:
// non-interactive, no profile, execution policy bypassed, with the entire
// script passed as a single -Command argument so the shell never re-splits it.
func (e *Executable) Invocation(command string) []string {
	return []string{e.Path, "-NonInteractive", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", command}
}
