package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	dserrors "github.com/systmms/keysync/internal/errors"
)

const (
	// AccountVar names the 1Password account in .env and the environment
	AccountVar = "OP_ACCOUNT"
	// KeyringService is the OS keyring service the account is stored under
	KeyringService = "keysync"
)

// AccountSource tells where the account was found
type AccountSource string

const (
	SourceEnvFile AccountSource = "env-file"
	SourceEnv     AccountSource = "environment"
	SourceConfig  AccountSource = "config"
	SourceKeyring AccountSource = "keyring"
)

// ResolveAccount finds the 1Password account. It checks the env file, the
// process environment, keysync.yaml and the OS keyring, in that order.
func (c *Config) ResolveAccount() (string, AccountSource, error) {
	envFile := c.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	vars, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		if v := strings.TrimSpace(vars[AccountVar]); v != "" {
			return v, SourceEnvFile, nil
		}
	case errors.Is(err, os.ErrNotExist):
		c.debug("No %s file found", envFile)
	default:
		return "", "", dserrors.ConfigError{
			Field:      "env-file",
			Value:      envFile,
			Message:    fmt.Sprintf("failed to parse env file: %v", err),
			Suggestion: "Use KEY=value lines, one per line",
		}
	}

	if v := strings.TrimSpace(os.Getenv(AccountVar)); v != "" {
		return v, SourceEnv, nil
	}

	if c.Definition != nil && c.Definition.OnePassword.Account != "" {
		return c.Definition.OnePassword.Account, SourceConfig, nil
	}

	v, err := keyring.Get(KeyringService, AccountVar)
	if err == nil && v != "" {
		return v, SourceKeyring, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		c.debug("Keyring lookup failed: %v", err)
	}

	return "", "", dserrors.ConfigError{
		Message:    fmt.Sprintf("%s environment variable not found in %s", AccountVar, envFile),
		Suggestion: fmt.Sprintf("Add %s=<account> to %s, or run 'keysync services set-account <account>'", AccountVar, envFile),
	}
}

// StoreAccount saves the account in the OS keyring
func StoreAccount(account string) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return dserrors.ConfigError{Field: "account", Message: "account cannot be empty"}
	}
	if err := keyring.Set(KeyringService, AccountVar, account); err != nil {
		return dserrors.UserError{
			Message:    "Failed to store account in the OS keyring",
			Details:    err.Error(),
			Suggestion: fmt.Sprintf("Set %s in your .env file instead", AccountVar),
			Err:        err,
		}
	}
	return nil
}

// CheckRoot verifies that marker exists in the working directory. An empty
// marker disables the check.
func CheckRoot(marker string) error {
	if marker == "" {
		return nil
	}
	info, err := os.Stat(marker)
	if err == nil && !info.IsDir() {
		return nil
	}
	return dserrors.UserError{
		Message:    "Please run this command from the repository root directory",
		Details:    fmt.Sprintf("%s not found in the current directory", marker),
		Suggestion: "cd to the repository root, or pass --root-marker \"\" to skip this check",
	}
}

func (c *Config) debug(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Debug(format, args...)
	}
}
