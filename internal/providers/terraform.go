package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"

	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/logging"
	"github.com/systmms/keysync/internal/secure"
	"github.com/systmms/keysync/internal/workdir"
	"github.com/systmms/keysync/pkg/credential"
	"github.com/systmms/keysync/pkg/exec"
)

const (
	// DefaultTerraformDir is resolved relative to the repository root.
	DefaultTerraformDir = "environments/dev"
	DefaultBinary       = "tofu"
	// DefaultEnvScript is sourced from inside the Terraform directory.
	DefaultEnvScript = "../../scripts/set-aws-credentials.sh"
)

// TerraformConfig configures how outputs are read
type TerraformConfig struct {
	Dir    string
	Binary string
	// EnvScript is sourced by bash before each query so the state backend
	// can authenticate. Empty runs the binary directly.
	EnvScript string
	UseMise   exec.MiseMode
}

// TerraformProvider reads an access key pair from Terraform (or OpenTofu)
// outputs named <prefix>_access_key_id and <prefix>_secret_access_key.
type TerraformProvider struct {
	config   TerraformConfig
	executor exec.CommandExecutor
	logger   *logging.Logger
}

// NewTerraformProvider creates a provider that spawns real processes
func NewTerraformProvider(cfg TerraformConfig, logger *logging.Logger) *TerraformProvider {
	return NewTerraformProviderWithExecutor(cfg, logger, exec.DefaultExecutor())
}

// NewTerraformProviderWithExecutor creates a provider with a custom executor (for testing)
func NewTerraformProviderWithExecutor(cfg TerraformConfig, logger *logging.Logger, executor exec.CommandExecutor) *TerraformProvider {
	if cfg.Dir == "" {
		cfg.Dir = DefaultTerraformDir
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.UseMise == "" {
		cfg.UseMise = exec.MiseAuto
	}
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &TerraformProvider{config: cfg, executor: executor, logger: logger}
}

// Name returns the provider name used in errors
func (p *TerraformProvider) Name() string {
	return "terraform"
}

// Fetch implements credential.Provider. Both outputs are read from inside
// the Terraform directory; the working directory is restored on every path.
func (p *TerraformProvider) Fetch(ctx context.Context, cfg credential.ServiceConfig) (*credential.Credentials, error) {
	var creds *credential.Credentials

	err := workdir.Run(p.config.Dir, func() error {
		tool := p.toolCommand(ctx)

		accessKeyID, err := p.output(ctx, tool, cfg.AccessKeyOutput())
		if err != nil {
			return err
		}
		id := string(accessKeyID)

		secret, err := p.output(ctx, tool, cfg.SecretKeyOutput())
		if err != nil {
			return err
		}

		creds, err = credential.NewCredentials(id, secret)
		if err != nil {
			return p.fail(cfg.SecretKeyOutput(), err)
		}
		return nil
	})
	if err != nil {
		var pe dserrors.ProviderError
		if !errors.As(err, &pe) {
			err = p.fail("", err)
		}
		return nil, err
	}
	return creds, nil
}

func (p *TerraformProvider) toolCommand(ctx context.Context) []string {
	return exec.ToolCommand(ctx, p.executor, p.config.UseMise, p.config.Binary)
}

// output returns the trimmed raw value of a single output. The caller owns
// the returned slice.
func (p *TerraformProvider) output(ctx context.Context, tool []string, name string) ([]byte, error) {
	argv := append(append([]string(nil), tool...), "output", "-raw", name)

	command, args := argv[0], argv[1:]
	if p.config.EnvScript != "" {
		command = "bash"
		args = []string{"-c", fmt.Sprintf(
			"source %s && export AWS_ACCESS_KEY_ID AWS_SECRET_ACCESS_KEY && %s",
			shellescape.Quote(p.config.EnvScript), shellescape.QuoteCommand(argv),
		)}
	}
	p.logger.Debug("Reading output %s: %s", name, exec.FormatCommand(command, args...))

	stdout, stderr, err := p.executor.Execute(ctx, command, args...)
	if err != nil {
		secure.Wipe(stdout)
		if exec.IsNotFound(err) {
			return nil, p.fail(name, dserrors.WrapCommandNotFound(command, err))
		}
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			return nil, p.fail(name, err)
		}
		return nil, p.fail(name, fmt.Errorf("%w: %s", err, msg))
	}

	value := bytes.TrimSpace(stdout)
	if len(value) == 0 {
		return nil, p.fail(name, errors.New("empty value returned"))
	}
	out := append([]byte(nil), value...)
	secure.Wipe(stdout)
	return out, nil
}

func (p *TerraformProvider) fail(output string, err error) error {
	return dserrors.ProviderError{Provider: p.Name(), Output: output, Err: err}
}

var _ credential.Provider = (*TerraformProvider)(nil)
