// Package workdir scopes changes to the process working directory.
//
// The working directory is process-global. Code that needs to run a tool
// from inside another directory enters a Scope and closes it on every path,
// so sequential callers in the same process never observe each other's
// directory.
package workdir

import (
	"fmt"
	"os"
	"sync"
)

// mu serialises scopes. Only one directory change may be active at a time.
var mu sync.Mutex

// Scope is an entered working directory. Close restores the previous one.
type Scope struct {
	previous string
	dir      string
	closed   bool
}

// Enter changes into dir and returns a Scope that must be closed.
// On error the working directory is left unchanged.
func Enter(dir string) (*Scope, error) {
	mu.Lock()

	previous, err := os.Getwd()
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("failed to read working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("failed to enter %s: %w", dir, err)
	}

	return &Scope{previous: previous, dir: dir}, nil
}

// Dir returns the directory the scope entered
func (s *Scope) Dir() string {
	return s.dir
}

// Close restores the previous working directory. Calling it again is a no-op.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer mu.Unlock()

	if err := os.Chdir(s.previous); err != nil {
		return fmt.Errorf("failed to restore working directory %s: %w", s.previous, err)
	}
	return nil
}

// Run calls fn with dir as the working directory. The previous directory is
// restored before Run returns, including when fn fails or panics. A restore
// failure is reported only if fn itself succeeded.
func Run(dir string, fn func() error) (err error) {
	scope, err := Enter(dir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn()
}
