package shell

import (
	"fmt"
	"strings"
)

// FormatOutcome collapses a process outcome into the single string returned
// to the caller.
//
// A non-zero exit is reported as an error built from trimmed stderr, falling
// back to the exit code when stderr is empty; stdout is discarded on that
// path so the error message stays focused. On a zero exit the result is
// trimmed stdout, with any stderr appended as a non-fatal warning.
func FormatOutcome(o *Outcome) string {
	stderr := strings.TrimSpace(o.Stderr)

	if o.ExitCode != 0 {
		if stderr != "" {
			return "Error: " + stderr
		}
		return fmt.Sprintf("Error: Command failed with exit code %d", o.ExitCode)
	}

	result := strings.TrimSpace(o.Stdout)
	if stderr != "" {
		if result != "" {
			result += fmt.Sprintf("\n[Warning: %s]", stderr)
		} else {
			result = fmt.Sprintf("[Warning: %s]", stderr)
		}
	}
	return result
}
