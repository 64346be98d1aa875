package workdir

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests change the process working directory and must not run in parallel.

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func TestRun_EntersAndRestores(t *testing.T) {
	start := mustGetwd(t)
	target, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	var inside string
	err = Run(target, func() error {
		inside = mustGetwd(t)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, target, inside)
	assert.Equal(t, start, mustGetwd(t))
}

func TestRun_RestoresOnError(t *testing.T) {
	start := mustGetwd(t)
	boom := errors.New("tofu output failed")

	err := Run(t.TempDir(), func() error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, start, mustGetwd(t))
}

func TestRun_RestoresOnPanic(t *testing.T) {
	start := mustGetwd(t)

	assert.Panics(t, func() {
		_ = Run(t.TempDir(), func() error { panic("unexpected") })
	})
	assert.Equal(t, start, mustGetwd(t))

	// The scope lock must have been released by the deferred Close.
	require.NoError(t, Run(t.TempDir(), func() error { return nil }))
}

func TestRun_MissingDirectory(t *testing.T) {
	start := mustGetwd(t)
	called := false

	err := Run(filepath.Join(t.TempDir(), "does-not-exist"), func() error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, start, mustGetwd(t))
}

func TestRun_Sequential(t *testing.T) {
	start := mustGetwd(t)
	a, b := t.TempDir(), t.TempDir()

	require.NoError(t, Run(a, func() error { return nil }))
	require.NoError(t, Run(b, func() error { return nil }))
	require.NoError(t, Run(a, func() error { return nil }))

	assert.Equal(t, start, mustGetwd(t))
}

func TestScope_CloseIsIdempotent(t *testing.T) {
	start := mustGetwd(t)
	dir := t.TempDir()

	scope, err := Enter(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, scope.Dir())

	require.NoError(t, scope.Close())
	require.NoError(t, scope.Close())
	assert.Equal(t, start, mustGetwd(t))
}
