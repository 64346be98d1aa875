package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertSecretRedacted verifies that a secret value does not appear in a string
// and that the [REDACTED] marker does.
//
// Example usage:
//
//	AssertSecretRedacted(t, out.String(), "wJalrXUtnFEMI/K7MDENG")
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in output", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker when secret is used")
}

// AssertNoSecretLeak verifies that none of the secrets appear in output.
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		assert.NotContains(t, output, secret,
			"Secret %q should never appear in output", secret)
	}
}

// AssertLinesContain verifies that each expected fragment appears on some
// line of output, in order.
func AssertLinesContain(t *testing.T, output string, expected []string) {
	t.Helper()

	lines := strings.Split(output, "\n")
	idx := 0
	for _, want := range expected {
		found := false
		for idx < len(lines) {
			line := lines[idx]
			idx++
			if strings.Contains(line, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected a line containing %q (in order) in output:\n%s", want, output)
			return
		}
	}
}
