package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/logging"
	"github.com/systmms/keysync/internal/providers"
	"github.com/systmms/keysync/internal/registry"
	"github.com/systmms/keysync/pkg/credential"
	"github.com/systmms/keysync/pkg/exec"
)

const (
	// DefaultPath is the configuration file looked up in the working directory
	DefaultPath = "keysync.yaml"
	// DefaultEnvFile holds OP_ACCOUNT
	DefaultEnvFile = ".env"
	// DefaultRootMarker must exist in the repository root
	DefaultRootMarker = "Taskfile.yml"
)

//go:embed schema.json
var schemaJSON []byte

// Config holds the runtime configuration
type Config struct {
	Path           string
	EnvFile        string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the keysync.yaml structure
type Definition struct {
	Version     int                                 `yaml:"version"`
	Terraform   TerraformSettings                   `yaml:"terraform,omitempty"`
	OnePassword OnePasswordSettings                 `yaml:"onepassword,omitempty"`
	Services    map[string]credential.ServiceConfig `yaml:"services,omitempty"`
	Metrics     MetricsSettings                     `yaml:"metrics,omitempty"`
}

// TerraformSettings configures how credentials are read from state
type TerraformSettings struct {
	Dir    string `yaml:"dir,omitempty"`
	Binary string `yaml:"binary,omitempty"`
	// EnvScript is nil when unset; an explicit empty string disables it.
	EnvScript *string `yaml:"env_script,omitempty"`
	UseMise   string  `yaml:"use_mise,omitempty"`
}

// OnePasswordSettings configures the op CLI
type OnePasswordSettings struct {
	Account string `yaml:"account,omitempty"`
	UseMise string `yaml:"use_mise,omitempty"`
}

// MetricsSettings configures the optional Pushgateway push
type MetricsSettings struct {
	Pushgateway string `yaml:"pushgateway,omitempty"`
	Job         string `yaml:"job,omitempty"`
}

// Load reads keysync.yaml. The file is optional: when it does not exist the
// built-in defaults apply.
func (c *Config) Load() error {
	if c.Path == "" {
		c.Path = DefaultPath
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if c.Logger != nil {
				c.Logger.Debug("No %s found, using built-in services", c.Path)
			}
			c.Definition = &Definition{}
			return nil
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	c.Definition = def
	return nil
}

// Parse validates and decodes a keysync.yaml document
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if raw == nil {
		return &Definition{}, nil
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    fmt.Sprintf("invalid configuration: %v", err),
			Suggestion: "Compare the file with the example in 'keysync generate' output",
		}
	}

	if def.Version != 0 {
		return nil, dserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your keysync.yaml file",
		}
	}
	return &def, nil
}

func validateSchema(doc interface{}) error {
	// Round-trip through JSON so YAML scalars take their JSON types.
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return dserrors.ConfigError{Message: fmt.Sprintf("configuration is not representable as JSON: %v", err)}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var messages []string
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return dserrors.ConfigError{
		Message:    "schema validation failed:\n  - " + strings.Join(messages, "\n  - "),
		Suggestion: "Fix the fields listed above in keysync.yaml",
	}
}

// Registry returns the built-in services with the configured ones merged on top
func (c *Config) Registry() (*registry.Registry, error) {
	reg := registry.NewDefault()
	if c.Definition == nil || len(c.Definition.Services) == 0 {
		return reg, nil
	}
	if err := reg.Merge(c.Definition.Services); err != nil {
		return nil, err
	}
	return reg, nil
}

// TerraformConfig returns the provider settings, with dirOverride taking
// precedence over the file when set.
func (c *Config) TerraformConfig(dirOverride string) (providers.TerraformConfig, error) {
	var tf TerraformSettings
	if c.Definition != nil {
		tf = c.Definition.Terraform
	}

	mode, err := exec.ParseMiseMode(tf.UseMise)
	if err != nil {
		return providers.TerraformConfig{}, dserrors.ConfigError{Field: "terraform.use_mise", Value: tf.UseMise, Message: err.Error()}
	}

	out := providers.TerraformConfig{
		Dir:       tf.Dir,
		Binary:    tf.Binary,
		EnvScript: providers.DefaultEnvScript,
		UseMise:   mode,
	}
	if tf.EnvScript != nil {
		out.EnvScript = *tf.EnvScript
	}
	if dirOverride != "" {
		out.Dir = dirOverride
	}
	return out, nil
}

// OnePasswordMise returns how op is invoked
func (c *Config) OnePasswordMise() (exec.MiseMode, error) {
	var raw string
	if c.Definition != nil {
		raw = c.Definition.OnePassword.UseMise
	}
	mode, err := exec.ParseMiseMode(raw)
	if err != nil {
		return "", dserrors.ConfigError{Field: "onepassword.use_mise", Value: raw, Message: err.Error()}
	}
	return mode, nil
}

// Metrics returns the metrics settings, with urlOverride taking precedence
func (c *Config) Metrics(urlOverride string) MetricsSettings {
	var m MetricsSettings
	if c.Definition != nil {
		m = c.Definition.Metrics
	}
	if urlOverride != "" {
		m.Pushgateway = urlOverride
	}
	return m
}
