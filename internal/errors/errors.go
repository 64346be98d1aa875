package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error: an unknown service, a missing
// account setting or an invalid configuration file. No external call is made
// once one of these is raised.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError represents a command execution error
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ProviderError reports that a credential provider could not produce a usable
// credential pair: the state query failed, or returned an empty value.
type ProviderError struct {
	Provider string
	Output   string
	Err      error
}

func (e ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider failed", e.Provider)
	if e.Output != "" {
		msg += fmt.Sprintf(" reading output '%s'", e.Output)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := Suggestion(e.Provider, e); s != "" {
		msg += "\n  💡 " + s
	}
	return msg
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// StorageWriteError reports that a create or update of a secret item failed.
// It only carries identifying, non-secret fields.
type StorageWriteError struct {
	Op    string // "create" or "update"
	Item  string
	Vault string
}

func (e StorageWriteError) Error() string {
	return fmt.Sprintf("failed to %s item '%s' in vault '%s'", e.Op, e.Item, e.Vault)
}

// StorageLookupError reports an existence check that could not tell whether the
// item is present.
type StorageLookupError struct {
	Item  string
	Vault string
	Err   error
}

func (e StorageLookupError) Error() string {
	msg := fmt.Sprintf("could not determine whether item '%s' exists in vault '%s'", e.Item, e.Vault)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e StorageLookupError) Unwrap() error {
	return e.Err
}

// InterruptedError reports an operator cancellation during a blocking step
type InterruptedError struct {
	Stage string
	Err   error
}

func (e InterruptedError) Error() string {
	if e.Stage == "" {
		return "operation cancelled by user"
	}
	return fmt.Sprintf("operation cancelled by user while %s", e.Stage)
}

func (e InterruptedError) Unwrap() error {
	return e.Err
}

// IsInterrupted reports whether err is, or wraps, an InterruptedError
func IsInterrupted(err error) bool {
	var ie InterruptedError
	return errors.As(err, &ie)
}

// ExitCode maps an error to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Suggestion returns a helpful hint based on the tool and error text
func Suggestion(tool string, err error) string {
	if err == nil {
		return ""
	}
	var errStr string
	if pe, ok := err.(ProviderError); ok {
		if pe.Err == nil {
			return ""
		}
		errStr = pe.Err.Error()
	} else {
		errStr = err.Error()
	}

	switch tool {
	case "1password", "onepassword", "op":
		if strings.Contains(errStr, "not signed in") || strings.Contains(errStr, "not currently signed in") || strings.Contains(errStr, "session expired") {
			return "Run 'op signin' to authenticate with 1Password"
		}
		if strings.Contains(errStr, "executable file not found") {
			return "Install 1Password CLI: https://developer.1password.com/docs/cli/get-started/"
		}

	case "terraform", "tofu":
		if strings.Contains(errStr, "No outputs found") || strings.Contains(errStr, "not found") {
			return "Run 'tofu apply' so the outputs exist in state, and check the service's output prefix"
		}
		if strings.Contains(errStr, "init") {
			return "Run 'tofu init' in the Terraform directory"
		}
		if strings.Contains(errStr, "executable file not found") {
			return "Install OpenTofu (or set terraform.binary in keysync.yaml)"
		}
		if strings.Contains(errStr, "no such file or directory") {
			return "Check --terraform-dir points at an initialised environment"
		}

	case "aws", "sts":
		if strings.Contains(errStr, "InvalidClientTokenId") {
			return "The access key is not recognised by AWS. A freshly rotated key can take a few seconds to propagate"
		}
		if strings.Contains(errStr, "SignatureDoesNotMatch") {
			return "The stored secret key does not match the access key id"
		}
	}

	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}

	return ""
}

// WrapCommandNotFound wraps command not found errors with helpful suggestions
func WrapCommandNotFound(command string, err error) error {
	suggestions := map[string]string{
		"op":        "Install 1Password CLI: https://developer.1password.com/docs/cli/get-started/",
		"tofu":      "Install OpenTofu from https://opentofu.org/",
		"terraform": "Install Terraform from https://developer.hashicorp.com/terraform/install",
		"mise":      "Install mise from https://mise.jdx.dev/",
		"bash":      "Install bash, it is required to source the AWS environment script",
	}

	suggestion := suggestions[command]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", command)
	}

	return CommandError{
		Command:    command,
		Message:    "command not found",
		Suggestion: suggestion,
	}
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	switch err.(type) {
	case UserError, ConfigError, CommandError, ProviderError,
		StorageWriteError, StorageLookupError, InterruptedError:
		return err
	}

	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	return err
}
