// Package testutil provides testing utilities for keysync.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	pkgexec "github.com/systmms/keysync/pkg/exec"
)

// MockCommandExecutor provides a configurable mock for testing CLI-driven
// providers and storages.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Responses maps command prefixes to their mock responses.
	// Key format: "command arg1 arg2" (space-separated command and args).
	// The longest matching prefix wins.
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching pattern is found.
	DefaultResponse *MockResponse

	// RecordedCalls stores all calls made to Execute for verification.
	RecordedCalls []RecordedCall

	// StrictMode causes Execute to fail if no matching response is found.
	StrictMode bool

	// OnExecute, when set, runs before the response is returned.
	OnExecute func(ctx context.Context, call RecordedCall)
}

// MockResponse defines the expected output for a mocked command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// RecordedCall stores information about a command execution.
type RecordedCall struct {
	Command string
	Args    []string
	// Dir is the process working directory at the time of the call.
	Dir string
}

// Line returns the call as a single space separated string
func (c RecordedCall) Line() string {
	return buildKey(c.Command, c.Args)
}

var _ pkgexec.CommandExecutor = (*MockCommandExecutor)(nil)

// NewMockCommandExecutor creates a new mock executor with empty responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Responses:     make(map[string]MockResponse),
		RecordedCalls: make([]RecordedCall, 0),
	}
}

// Execute returns the mocked response for the given command.
func (m *MockCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	dir, _ := os.Getwd()
	call := RecordedCall{Command: name, Args: append([]string(nil), args...), Dir: dir}

	m.mu.Lock()
	m.RecordedCalls = append(m.RecordedCalls, call)
	hook := m.OnExecute
	resp, ok := m.lookup(buildKey(name, args))
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}
	if ok {
		// Returned slices are copies; callers may wipe them.
		return append([]byte(nil), resp.Stdout...), append([]byte(nil), resp.Stderr...), resp.Err
	}
	if m.StrictMode {
		return nil, nil, fmt.Errorf("mock: no response configured for command: %s", buildKey(name, args))
	}
	return []byte{}, []byte{}, nil
}

func (m *MockCommandExecutor) lookup(key string) (MockResponse, bool) {
	best := -1
	var found MockResponse
	for pattern, resp := range m.Responses {
		if strings.HasPrefix(key, pattern) && len(pattern) > best {
			best = len(pattern)
			found = resp
		}
	}
	if best >= 0 {
		return found, true
	}
	if m.DefaultResponse != nil {
		return *m.DefaultResponse, true
	}
	return MockResponse{}, false
}

func buildKey(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// AddResponse registers a mock response for a command prefix.
func (m *MockCommandExecutor) AddResponse(commandPattern string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandPattern] = response
}

// AddOutput registers a successful response with the given stdout.
func (m *MockCommandExecutor) AddOutput(commandPattern string, stdout string) {
	m.AddResponse(commandPattern, MockResponse{Stdout: []byte(stdout), Stderr: []byte{}})
}

// AddErrorResponse registers a failing response with the given stderr.
func (m *MockCommandExecutor) AddErrorResponse(commandPattern string, errMsg string, exitCode int) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout: []byte{},
		Stderr: []byte(errMsg),
		Err:    fmt.Errorf("exit status %d", exitCode),
	})
}

// Calls returns a copy of all recorded calls.
func (m *MockCommandExecutor) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedCall(nil), m.RecordedCalls...)
}

// CallsMatching returns recorded calls whose command line starts with prefix.
func (m *MockCommandExecutor) CallsMatching(prefix string) []RecordedCall {
	var matches []RecordedCall
	for _, call := range m.Calls() {
		if strings.HasPrefix(call.Line(), prefix) {
			matches = append(matches, call)
		}
	}
	return matches
}

// CallCount returns the number of times Execute was called.
func (m *MockCommandExecutor) CallCount() int {
	return len(m.Calls())
}

// AssertCallCount verifies the number of calls whose command line starts with prefix.
func (m *MockCommandExecutor) AssertCallCount(t interface{ Error(args ...interface{}) }, prefix string, expected int) bool {
	calls := m.CallsMatching(prefix)
	if len(calls) != expected {
		t.Error("expected", prefix, "to be called", expected, "times, but was called", len(calls), "times")
		return false
	}
	return true
}

// AssertNotCalled verifies that no call starts with prefix.
func (m *MockCommandExecutor) AssertNotCalled(t interface{ Error(args ...interface{}) }, prefix string) bool {
	return m.AssertCallCount(t, prefix, 0)
}

// OnePasswordMockResponses provides pre-configured responses for the op CLI.
type OnePasswordMockResponses struct{}

// ItemNotFound returns the op error for a missing item.
func (OnePasswordMockResponses) ItemNotFound(title, vault string) MockResponse {
	msg := fmt.Sprintf("[ERROR] 2025/07/19 16:25:00 %q isn't an item in the %q vault. Specify the item with its UUID, name, or domain.\n", title, vault)
	return MockResponse{Stderr: []byte(msg), Err: fmt.Errorf("exit status 1")}
}

// NotSignedIn returns the op error for an expired session.
func (OnePasswordMockResponses) NotSignedIn() MockResponse {
	return MockResponse{
		Stderr: []byte("[ERROR] 2025/07/19 16:25:00 You are not currently signed in. Please run `op signin --help` for instructions\n"),
		Err:    fmt.Errorf("exit status 1"),
	}
}

// Item returns an op item get --format json response for an API Credential item.
func (OnePasswordMockResponses) Item(title, vault, accessKeyID, secret string) MockResponse {
	return MockResponse{
		Stdout: []byte(fmt.Sprintf(`{
			"id": "xk3v7q2mzrzq4n5f6tj3pkhqle",
			"title": %q,
			"category": "API_CREDENTIAL",
			"tags": ["aws", "backup"],
			"vault": {"id": "vault-1", "name": %q},
			"fields": [
				{"id": "username", "type": "STRING", "label": "username", "value": %q},
				{"id": "credential", "type": "CONCEALED", "label": "password", "value": %q},
				{"id": "notesPlain", "type": "STRING", "purpose": "NOTES", "label": "notesPlain", "value": "Managed by Terraform"}
			]
		}`, title, vault, accessKeyID, secret)),
	}
}
