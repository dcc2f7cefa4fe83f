package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// DefaultTermGracePeriod is how long a timed-out process is given to exit
// after the graceful termination signal before it is force-killed.
const DefaultTermGracePeriod = 5 * time.Second

// RunRequest describes a single process run.
type RunRequest struct {
	Command string
	Args    []string

	// Timeout bounds the wait on the process; zero or negative means wait
	// indefinitely.
	Timeout time.Duration
}

// Outcome is the captured result of one process run. It is transient: the
// formatter consumes it immediately and it is not retained.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// SpawnError indicates the process could not be started, or failed in some
// unexpected way unrelated to its own exit status.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return fmt.Sprintf("spawning process: %s", e.Err) }
func (e *SpawnError) Unwrap() error { return e.Err }

// TimeoutError indicates the process outlived its deadline and has been
// terminated. By the time a caller sees it, the process is no longer running.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s", e.Timeout)
}

// Supervisor runs one child process per call, captures its stdout and stderr,
// and enforces a wall-clock deadline with two-phase termination: a graceful
// signal to the process group, a bounded grace wait, then a force kill.
type Supervisor struct {
	log         *zap.SugaredLogger
	gracePeriod time.Duration
}

// NewSupervisor builds a Supervisor. A non-positive gracePeriod falls back to
// DefaultTermGracePeriod.
func NewSupervisor(log *zap.SugaredLogger, gracePeriod time.Duration) *Supervisor {
	if gracePeriod <= 0 {
		gracePeriod = DefaultTermGracePeriod
	}
	return &Supervisor{
		log:         log.Named("supervisor"),
		gracePeriod: gracePeriod,
	}
}

// Run spawns the requested process and blocks until it exits or the deadline
// fires. The child runs in its own process group with no piped stdin. Every
// exit path waits on the child so no zombie is left behind.
func (s *Supervisor) Run(ctx context.Context, req RunRequest) (*Outcome, error) {
	cmd := exec.Command(req.Command, req.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// No stdin: the script must not block waiting for input.
	cmd.Stdin = nil
	setProcessGroup(cmd)

	s.log.Infow("starting process", "Executable", req.Command, "Timeout", req.Timeout)

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Err: err}
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	if req.Timeout <= 0 {
		s.log.Debug("waiting for process with no timeout")
		select {
		case err := <-waitErr:
			return s.outcome(cmd, &stdout, &stderr, err)
		case <-ctx.Done():
			s.terminate(cmd, waitErr)
			return nil, ctx.Err()
		}
	}

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	select {
	case err := <-waitErr:
		return s.outcome(cmd, &stdout, &stderr, err)
	case <-ctx.Done():
		s.terminate(cmd, waitErr)
		return nil, ctx.Err()
	case <-timer.C:
		s.log.Warnw("process deadline exceeded, terminating", "PID", cmd.Process.Pid, "Timeout", req.Timeout)
		s.terminate(cmd, waitErr)
		return nil, &TimeoutError{Timeout: req.Timeout}
	}
}

// terminate runs the escalation state machine: graceful signal, bounded grace
// wait, then force kill with an unbounded wait. It returns only once the
// child has been reaped.
func (s *Supervisor) terminate(cmd *exec.Cmd, waitErr <-chan error) {
	if err := terminateProcessGroup(cmd); err != nil {
		s.log.Debugf("error sending termination signal: %s", err)
	}

	select {
	case <-waitErr:
		s.log.Infow("process exited after termination signal", "PID", cmd.Process.Pid)
		return
	case <-time.After(s.gracePeriod):
	}

	s.log.Errorw("process did not terminate gracefully, killing", "PID", cmd.Process.Pid)
	if err := killProcessGroup(cmd); err != nil {
		s.log.Debugf("error killing process group: %s", err)
	}
	<-waitErr
}

func (s *Supervisor) outcome(cmd *exec.Cmd, stdout, stderr *bytes.Buffer, waitErr error) (*Outcome, error) {
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return nil, &SpawnError{Err: waitErr}
		}
	}
	code := cmd.ProcessState.ExitCode()
	s.log.Infow("process exited", "PID", cmd.Process.Pid, "ExitCode", code)
	return &Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: code,
	}, nil
}
