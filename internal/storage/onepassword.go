// Package storage writes rotated credentials into a secret store.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/logging"
	"github.com/systmms/keysync/pkg/credential"
	"github.com/systmms/keysync/pkg/exec"
)

// ItemCategory is the 1Password category used for new items
const ItemCategory = "API Credential"

// OnePasswordStorage stores credentials as 1Password items through the op CLI.
// The access key id goes to the username field and the secret access key to
// the password field.
type OnePasswordStorage struct {
	account  string
	useMise  exec.MiseMode
	executor exec.CommandExecutor
	logger   *logging.Logger

	opOnce sync.Once
	opCmd  []string
}

// NewOnePasswordStorage creates a storage bound to a 1Password account
func NewOnePasswordStorage(account string, useMise exec.MiseMode, logger *logging.Logger) *OnePasswordStorage {
	return NewOnePasswordStorageWithExecutor(account, useMise, logger, exec.DefaultExecutor())
}

// NewOnePasswordStorageWithExecutor creates a storage with a custom executor (for testing)
func NewOnePasswordStorageWithExecutor(account string, useMise exec.MiseMode, logger *logging.Logger, executor exec.CommandExecutor) *OnePasswordStorage {
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &OnePasswordStorage{
		account:  account,
		useMise:  useMise,
		executor: executor,
		logger:   logger,
	}
}

// Name returns the storage name
func (s *OnePasswordStorage) Name() string {
	return "onepassword"
}

// Exists implements credential.Storage. Any lookup failure reports false.
func (s *OnePasswordStorage) Exists(ctx context.Context, itemTitle, vault string) bool {
	status, _ := s.Probe(ctx, itemTitle, vault)
	return status == credential.ItemPresent
}

// Probe implements credential.Prober. It tells a missing item apart from a
// failed lookup such as an expired session.
func (s *OnePasswordStorage) Probe(ctx context.Context, itemTitle, vault string) (credential.ItemStatus, error) {
	_, stderr, err := s.run(ctx, nil, "item", "get", itemTitle, "--vault", vault, "--account", s.account)
	if err == nil {
		return credential.ItemPresent, nil
	}
	if isItemNotFound(stderr) {
		s.logger.Debug("Item %q not found in vault %q", itemTitle, vault)
		return credential.ItemAbsent, nil
	}
	return credential.ItemUnknown, s.commandError(err, stderr, nil)
}

// Create implements credential.Storage
func (s *OnePasswordStorage) Create(ctx context.Context, cfg credential.ServiceConfig, creds *credential.Credentials) bool {
	return s.write(ctx, creds, func(secret string) []string {
		args := []string{
			"item", "create",
			"--category", ItemCategory,
			"--title", cfg.ItemTitle,
			"--vault", cfg.Vault,
			"--account", s.account,
			"username=" + creds.AccessKeyID,
			"password=" + secret,
		}
		if len(cfg.Tags) > 0 {
			args = append(args, "--tags", strings.Join(cfg.Tags, ","))
		}
		if cfg.Description != "" {
			args = append(args, "notesPlain="+cfg.Description)
		}
		return args
	})
}

// Update implements credential.Storage. Only the username and password
// fields are replaced; tags and notes are left as they are.
func (s *OnePasswordStorage) Update(ctx context.Context, cfg credential.ServiceConfig, creds *credential.Credentials) bool {
	return s.write(ctx, creds, func(secret string) []string {
		return []string{
			"item", "edit", cfg.ItemTitle,
			"--vault", cfg.Vault,
			"--account", s.account,
			"username=" + creds.AccessKeyID,
			"password=" + secret,
		}
	})
}

// Read returns the credential pair currently stored in an item
func (s *OnePasswordStorage) Read(ctx context.Context, itemTitle, vault string) (*credential.Credentials, error) {
	stdout, stderr, err := s.run(ctx, nil, "item", "get", itemTitle, "--vault", vault, "--account", s.account, "--format", "json")
	if err != nil {
		if isItemNotFound(stderr) {
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Item '%s' not found in vault '%s'", itemTitle, vault),
				Suggestion: "Run 'keysync update <service>' to create it",
			}
		}
		return nil, s.commandError(err, stderr, nil)
	}

	var item OnePasswordItem
	if err := json.Unmarshal(stdout, &item); err != nil {
		return nil, fmt.Errorf("failed to parse 1Password response: %w", err)
	}

	accessKeyID, err := item.field("username")
	if err != nil {
		return nil, err
	}
	secret, err := item.field("password")
	if err != nil {
		return nil, err
	}
	return credential.NewCredentials(accessKeyID, []byte(secret))
}

// write reveals the secret only for the duration of the op call
func (s *OnePasswordStorage) write(ctx context.Context, creds *credential.Credentials, build func(secret string) []string) bool {
	err := creds.RevealSecret(func(secret string) error {
		_, stderr, err := s.run(ctx, []string{secret}, build(secret)...)
		if err != nil {
			return s.commandError(err, stderr, []string{secret})
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("%v", err)
		return false
	}
	return true
}

func (s *OnePasswordStorage) run(ctx context.Context, secrets []string, args ...string) ([]byte, []byte, error) {
	argv := append(s.opCommand(ctx), args...)
	s.logger.Debug("Running: %s", logging.Redact(exec.FormatCommand(argv[0], argv[1:]...), secrets))
	return s.executor.Execute(ctx, argv[0], argv[1:]...)
}

// opCommand resolves the op invocation once per storage
func (s *OnePasswordStorage) opCommand(ctx context.Context) []string {
	s.opOnce.Do(func() {
		s.opCmd = exec.ToolCommand(ctx, s.executor, s.useMise, "op")
	})
	return append([]string(nil), s.opCmd...)
}

func (s *OnePasswordStorage) commandError(err error, stderr []byte, secrets []string) error {
	if exec.IsNotFound(err) {
		return dserrors.WrapCommandNotFound("op", err)
	}
	msg := strings.TrimSpace(logging.Redact(string(stderr), secrets))
	if msg == "" {
		msg = err.Error()
	}
	code := exec.ExitCode(err)
	if code < 0 {
		code = 0
	}
	return dserrors.CommandError{
		Command:    "op",
		ExitCode:   code,
		Message:    msg,
		Suggestion: dserrors.Suggestion("op", errors.New(msg)),
	}
}

// isItemNotFound matches op's item lookup wording only; other "not found"
// messages (a missing binary under mise, a missing vault) stay indeterminate.
func isItemNotFound(stderr []byte) bool {
	return strings.Contains(strings.ToLower(string(stderr)), "isn't an item")
}

// OnePasswordItem is the subset of "op item get --format json" keysync reads
type OnePasswordItem struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Vault    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"vault"`
	Fields []OnePasswordField `json:"fields"`
}

// OnePasswordField is a single item field
type OnePasswordField struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Purpose string `json:"purpose,omitempty"`
	Label   string `json:"label"`
	Value   string `json:"value"`
}

// field finds a field by label or id. For "password" a concealed field is
// accepted as well, since API Credential items name it "credential".
func (i *OnePasswordItem) field(name string) (string, error) {
	for _, f := range i.Fields {
		if strings.EqualFold(f.Label, name) || f.ID == name {
			if f.Value == "" {
				return "", fmt.Errorf("field '%s' is empty in item '%s'", name, i.Title)
			}
			return f.Value, nil
		}
	}
	if name == "password" {
		for _, f := range i.Fields {
			if f.Type == "CONCEALED" && f.Value != "" {
				return f.Value, nil
			}
		}
	}
	return "", fmt.Errorf("field '%s' not found in item '%s'", name, i.Title)
}

var (
	_ credential.Storage = (*OnePasswordStorage)(nil)
	_ credential.Prober  = (*OnePasswordStorage)(nil)
)
