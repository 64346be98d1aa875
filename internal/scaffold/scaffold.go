// Package scaffold generates the configuration for a new backup service:
// the registry entry, the Terraform IAM resources that produce its access
// key, and the S3 bucket block.
package scaffold

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/systmms/keysync/pkg/credential"
)

const (
	DefaultVault = "Automation"
	// RepositorySuffix ends generated bucket names and item titles
	RepositorySuffix = "home-ops"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Answers holds what the operator chose for a new service
type Answers struct {
	ID          string
	DisplayName string
	BucketName  string
	Vault       string
	Tags        []string
}

// DefaultAnswers returns the suggested answers for a service id
func DefaultAnswers(id string) Answers {
	return Answers{
		ID:          id,
		DisplayName: titleCase(id) + " S3 Backup",
		BucketName:  fmt.Sprintf("%s-backup-%s", id, RepositorySuffix),
		Vault:       DefaultVault,
		Tags:        []string{"aws", id, "s3", "backup"},
	}
}

// ValidateID checks a service id is usable in Terraform names and YAML keys
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("service name is required")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("service name %q must contain only lowercase letters, digits and dashes", id)
	}
	return nil
}

// ResourceName is the Terraform identifier derived from the service id
func (a Answers) ResourceName() string {
	return strings.ReplaceAll(a.ID, "-", "_")
}

// ServiceConfig builds the registry entry for the answers
func (a Answers) ServiceConfig() credential.ServiceConfig {
	return credential.ServiceConfig{
		ServiceName:  a.DisplayName,
		OutputPrefix: a.ResourceName() + "_backup",
		ItemTitle:    fmt.Sprintf("AWS Access Key - %s-s3-backup - %s", a.ID, RepositorySuffix),
		Vault:        a.Vault,
		Tags:         append([]string(nil), a.Tags...),
		Description:  fmt.Sprintf("AWS IAM credentials for %s access. Managed by Terraform in home-iac repository.", a.DisplayName),
		BucketName:   a.BucketName,
		Region:       credential.DefaultRegion,
	}
}

// titleCase upper-cases the first letter of every run of letters
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !prevLetter {
				r = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseTags splits a comma separated list and drops empty entries
func parseTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
