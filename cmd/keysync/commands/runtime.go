package commands

import (
	"errors"
	"time"

	"github.com/systmms/keysync/internal/verify"
	"github.com/systmms/keysync/pkg/exec"
)

// Runtime holds the collaborators commands reach outside the process with
type Runtime struct {
	Executor exec.CommandExecutor
	NewSTS   verify.ClientFactory
	Now      func() time.Time
}

// DefaultRuntime spawns real processes and talks to AWS
func DefaultRuntime() *Runtime {
	return &Runtime{
		Executor: exec.DefaultExecutor(),
		NewSTS:   verify.NewSTSClient,
		Now:      time.Now,
	}
}

// reportedError marks an error whose details were already shown to the operator
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// reported wraps err so main does not print it a second time
func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// IsReported reports whether err was already shown to the operator
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
