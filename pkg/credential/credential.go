// Package credential defines the values and capabilities that a credential
// sync run is built from.
//
// A sync run takes a ServiceConfig, asks a Provider for a fresh access key
// pair, and writes that pair into a Storage. Provider and Storage are
// deliberately small interfaces so that the rotation workflow can be driven
// by test doubles without spawning any process:
//
//	type fixedProvider struct{}
//
//	func (fixedProvider) Fetch(ctx context.Context, cfg credential.ServiceConfig) (*credential.Credentials, error) {
//	    return credential.NewCredentials("AKIA123", []byte("secret1"))
//	}
//
// # Secret handling
//
// Credentials keeps the secret access key sealed in a memguard enclave. The
// plaintext is only available inside RevealSecret, and formatting a
// Credentials value with any verb never prints it. Callers own the value and
// must call Destroy when the run is over.
//
// # Identity
//
// A ServiceConfig identifies its target secret item by ItemTitle plus Vault,
// and its Terraform outputs by OutputPrefix:
//
//	<prefix>_access_key_id
//	<prefix>_secret_access_key
package credential

import (
	"context"
	"fmt"
	"strings"

	"github.com/systmms/keysync/internal/secure"
)

// DefaultRegion is used when a service does not name one
const DefaultRegion = "us-west-2"

const (
	accessKeySuffix = "_access_key_id"
	secretKeySuffix = "_secret_access_key"
)

// ServiceConfig describes one rotatable credential set.
//
// Values are treated as immutable once registered.
type ServiceConfig struct {
	// ServiceName is the human readable name, e.g. "PostgreSQL S3 Backup".
	ServiceName string `yaml:"service_name" json:"service_name"`

	// OutputPrefix locates the two Terraform outputs holding the key pair.
	OutputPrefix string `yaml:"terraform_output_prefix" json:"terraform_output_prefix"`

	// ItemTitle and Vault identify the target item in the secret store.
	ItemTitle string `yaml:"onepassword_item_title" json:"onepassword_item_title"`
	Vault     string `yaml:"onepassword_vault" json:"onepassword_vault"`

	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`

	// BucketName is the S3 bucket the key grants access to, if any.
	BucketName string `yaml:"s3_bucket_name,omitempty" json:"s3_bucket_name,omitempty"`
	Region     string `yaml:"aws_region,omitempty" json:"aws_region,omitempty"`
}

// AccessKeyOutput returns the Terraform output name of the access key id
func (c ServiceConfig) AccessKeyOutput() string {
	return c.OutputPrefix + accessKeySuffix
}

// SecretKeyOutput returns the Terraform output name of the secret access key
func (c ServiceConfig) SecretKeyOutput() string {
	return c.OutputPrefix + secretKeySuffix
}

// EffectiveRegion returns Region, falling back to DefaultRegion
func (c ServiceConfig) EffectiveRegion() string {
	if c.Region == "" {
		return DefaultRegion
	}
	return c.Region
}

// Validate checks that the fields needed to locate outputs and the target
// item are present.
func (c ServiceConfig) Validate() error {
	var missing []string
	if c.ServiceName == "" {
		missing = append(missing, "service_name")
	}
	if c.OutputPrefix == "" {
		missing = append(missing, "terraform_output_prefix")
	}
	if c.ItemTitle == "" {
		missing = append(missing, "onepassword_item_title")
	}
	if c.Vault == "" {
		missing = append(missing, "onepassword_vault")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Credentials is an AWS access key pair fetched for a single sync run.
//
// The access key id is public and may be logged. The secret access key is
// sealed and only reachable through RevealSecret.
type Credentials struct {
	AccessKeyID string
	secret      *secure.SecureBuffer
}

// NewCredentials seals secret and returns the pair. Both values must be non-empty.
// The secret slice is wiped.
func NewCredentials(accessKeyID string, secret []byte) (*Credentials, error) {
	if accessKeyID == "" {
		return nil, fmt.Errorf("empty access key id")
	}
	buf, err := secure.NewSecureBuffer(secret)
	if err != nil {
		return nil, fmt.Errorf("empty secret access key")
	}
	return &Credentials{AccessKeyID: accessKeyID, secret: buf}, nil
}

// RevealSecret calls fn with the plaintext secret access key
func (c *Credentials) RevealSecret(fn func(secret string) error) error {
	return c.secret.Reveal(func(b []byte) error {
		return fn(string(b))
	})
}

// Destroy discards the sealed secret. It is safe to call more than once.
func (c *Credentials) Destroy() {
	if c != nil && c.secret != nil {
		c.secret.Destroy()
	}
}

func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKeyID: %s, SecretAccessKey: [REDACTED]}", c.AccessKeyID)
}

func (c *Credentials) GoString() string {
	return c.String()
}

// Provider produces fresh credentials for a service from an infrastructure
// state source.
type Provider interface {
	// Fetch returns a new credential pair. It fails when the state query
	// fails or returns an empty value for either field, and must leave any
	// process state it touches (such as the working directory) as it found
	// it on every path.
	Fetch(ctx context.Context, cfg ServiceConfig) (*Credentials, error)
}

// Storage writes credentials into a secret store. Operations report success
// as a boolean and never return errors, so the caller can apply one uniform
// "attempt, then fall back to manual instructions" policy.
type Storage interface {
	// Exists reports whether the item is present. Not-found and any other
	// lookup failure both report false.
	Exists(ctx context.Context, itemTitle, vault string) bool

	// Create creates a new item tagged with cfg.Tags, holding the pair and
	// cfg.Description.
	Create(ctx context.Context, cfg ServiceConfig, creds *Credentials) bool

	// Update replaces the pair on the existing item cfg.ItemTitle in cfg.Vault.
	Update(ctx context.Context, cfg ServiceConfig, creds *Credentials) bool
}

// ItemStatus is the three-way outcome of a lookup
type ItemStatus int

const (
	ItemUnknown ItemStatus = iota
	ItemPresent
	ItemAbsent
)

func (s ItemStatus) String() string {
	switch s {
	case ItemPresent:
		return "present"
	case ItemAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// Prober is implemented by storages that can tell "not found" apart from a
// failed lookup.
type Prober interface {
	Probe(ctx context.Context, itemTitle, vault string) (ItemStatus, error)
}
