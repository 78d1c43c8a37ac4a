package backend

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts process execution for testability. Run blocks
// until the command exits and returns its standard output.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, error)
}

// ExternalCommandError reports a command that exited non-zero or could not
// be started. Output holds everything the command printed.
type ExternalCommandError struct {
	Command  string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

// Error returns the formatted error string.
func (e *ExternalCommandError) Error() string {
	msg := fmt.Sprintf("backend: %s %s: exit %d", e.Command, strings.Join(e.Args, " "), e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying execution error.
func (e *ExternalCommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. A non-zero exit is returned as an
// *ExternalCommandError carrying both output streams.
func (ExecRunner) Run(name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return stdout.Bytes(), &ExternalCommandError{
			Command:  name,
			Args:     args,
			ExitCode: code,
			Output:   stdout.String() + stderr.String(),
			Err:      err,
		}
	}
	return stdout.Bytes(), nil
}
