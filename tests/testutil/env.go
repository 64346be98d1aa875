package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetupTestEnv sets environment variables for the duration of a test and
// unsets the listed ones. Tests using it must not run in parallel.
//
// Example usage:
//
//	SetupTestEnv(t, map[string]string{"OP_ACCOUNT": "my.1password.com"})
func SetupTestEnv(t *testing.T, vars map[string]string, unset ...string) {
	t.Helper()

	for key, value := range vars {
		t.Setenv(key, value)
	}
	for _, key := range unset {
		// t.Setenv registers restoration of the original value.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

// ChdirTemp creates a repository-like temporary directory, changes into it for
// the duration of the test and returns its path. files maps relative paths to
// contents.
func ChdirTemp(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	t.Chdir(dir)
	return dir
}
