// Package exec runs the external tools keysync drives (tofu, op, mise, bash).
// Callers depend on CommandExecutor so tests can substitute canned responses
// and never spawn a process.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor runs a single command to completion.
type CommandExecutor interface {
	// Execute runs name with args once, without retries, and returns its
	// captured stdout and stderr. A non-zero exit status is returned as err.
	Execute(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// RealCommandExecutor spawns processes with os/exec.
type RealCommandExecutor struct{}

// Execute runs an actual command. The child inherits the current working
// directory and environment.
func (r *RealCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DefaultExecutor returns the production executor.
func DefaultExecutor() CommandExecutor {
	return &RealCommandExecutor{}
}

// Succeeds runs the command and reports whether it exited zero.
func Succeeds(ctx context.Context, e CommandExecutor, name string, args ...string) bool {
	_, _, err := e.Execute(ctx, name, args...)
	return err == nil
}

// IsNotFound reports whether err means the executable could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// ExitCode extracts the exit status from err, or -1 when unavailable.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// sensitiveAssignments are op field assignments whose values must not be echoed.
var sensitiveAssignments = []string{"password="}

// FormatCommand renders a command line for debug output with sensitive field
// assignments masked.
func FormatCommand(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, arg := range args {
		for _, prefix := range sensitiveAssignments {
			if strings.HasPrefix(arg, prefix) {
				arg = prefix + "[REDACTED]"
				break
			}
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// MiseMode controls whether tools are run through "mise exec --".
type MiseMode string

const (
	MiseAuto   MiseMode = "auto"
	MiseAlways MiseMode = "always"
	MiseNever  MiseMode = "never"
)

// ParseMiseMode accepts "", auto, always or never. The empty string means auto.
func ParseMiseMode(s string) (MiseMode, error) {
	switch MiseMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MiseAuto:
		return MiseAuto, nil
	case MiseAlways:
		return MiseAlways, nil
	case MiseNever:
		return MiseNever, nil
	}
	return "", fmt.Errorf("invalid mise mode %q (want auto, always or never)", s)
}

// ToolCommand returns the argv prefix that runs tool. In auto mode it probes
// "mise --version" once per call and uses mise only when that succeeds.
func ToolCommand(ctx context.Context, e CommandExecutor, mode MiseMode, tool string) []string {
	useMise := mode == MiseAlways
	if mode == MiseAuto || mode == "" {
		useMise = Succeeds(ctx, e, "mise", "--version")
	}
	if useMise {
		return []string{"mise", "exec", "--", tool}
	}
	return []string{tool}
}
