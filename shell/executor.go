package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeoutSeconds is applied when a caller does not supply a timeout.
const DefaultTimeoutSeconds = 300

// Runner runs a single process to completion. It is satisfied by Supervisor
// and stubbed in tests.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (*Outcome, error)
}

// Executor is the sole entry point of the execution core. It validates the
// command, runs it under the Supervisor, and formats the result. Execute is
// total: every failure path produces a descriptive "Error: ..." string and
// nothing escapes as a panic or error.
type Executor struct {
	log           *zap.SugaredLogger
	exe           *Executable
	maxCommandLen int
	gracePeriod   time.Duration
	runner        Runner
}

// ExecutorOption configures an Executor.
type ExecutorOption func(e *Executor)

// WithMaxCommandLength overrides the maximum accepted command length.
func WithMaxCommandLength(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxCommandLen = n
	}
}

// WithTermGracePeriod overrides how long a timed-out process may take to exit
// gracefully before being force-killed.
func WithTermGracePeriod(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.gracePeriod = d
	}
}

// WithRunner substitutes the process runner.
func WithRunner(r Runner) ExecutorOption {
	return func(e *Executor) {
		e.runner = r
	}
}

// NewExecutor builds an Executor around the executable resolved at startup.
// exe may be nil when no shell was found; Execute then reports that on every
// call rather than failing construction.
func NewExecutor(log *zap.SugaredLogger, exe *Executable, opts ...ExecutorOption) *Executor {
	e := &Executor{
		log:           log.Named("executor"),
		exe:           exe,
		maxCommandLen: DefaultMaxCommandLength,
		gracePeriod:   DefaultTermGracePeriod,
	}
	for _, o := range opts {
		o(e)
	}
	if e.runner == nil {
		e.runner = NewSupervisor(log, e.gracePeriod)
	}
	return e
}

// Execute runs the given PowerShell code and returns its formatted output.
// timeoutSecs bounds the run; zero or negative means no timeout.
func (e *Executor) Execute(ctx context.Context, code string, timeoutSecs int) (result string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("panic during command execution", "Panic", r)
			result = fmt.Sprintf("Error: Unexpected error occurred: %v", r)
		}
	}()

	if e.exe == nil {
		return "Error: No PowerShell executable found on system"
	}

	if err := ValidateCommand(code, e.maxCommandLen); err != nil {
		return "Error: " + err.Error()
	}

	e.log.Infow("executing PowerShell command",
		"Variant", string(e.exe.Variant),
		"CommandLength", len(code),
		"TimeoutSeconds", timeoutSecs,
	)

	argv := e.exe.Invocation(code)
	outcome, err := e.runner.Run(ctx, RunRequest{
		Command: argv[0],
		Args:    argv[1:],
		Timeout: time.Duration(timeoutSecs) * time.Second,
	})
	if err != nil {
		var timeoutErr *TimeoutError
		if errors.As(err, &timeoutErr) {
			return fmt.Sprintf("Error: Command timed out after %d seconds", timeoutSecs)
		}
		e.log.Errorw("unexpected error during command execution", "Error", err)
		return fmt.Sprintf("Error: Unexpected error occurred: %s", err)
	}

	if outcome.ExitCode != 0 {
		e.log.Warnw("command failed", "ExitCode", outcome.ExitCode)
	} else if strings.TrimSpace(outcome.Stderr) != "" {
		e.log.Infow("command produced non-fatal stderr", "StderrLength", len(outcome.Stderr))
	}

	return FormatOutcome(outcome)
}
