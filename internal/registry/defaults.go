package registry

import "github.com/systmms/keysync/pkg/credential"

const (
	defaultVault = "Automation"
	managedBy    = "Managed by Terraform in home-iac repository."
)

// Defaults returns a fresh copy of the built-in services
func Defaults() map[string]credential.ServiceConfig {
	return map[string]credential.ServiceConfig{
		"postgresql": {
			ServiceName:  "PostgreSQL S3 Backup",
			OutputPrefix: "postgresql_backup",
			ItemTitle:    "AWS Access Key - postgresql-s3-backup - home-ops",
			Vault:        defaultVault,
			Tags:         []string{"aws", "postgresql", "s3", "backup", "database"},
			Description:  "AWS IAM credentials for PostgreSQL S3 backup access. " + managedBy,
			BucketName:   "postgresql-backup-home-ops",
			Region:       credential.DefaultRegion,
		},
		"longhorn": {
			ServiceName:  "Longhorn S3 Backup",
			OutputPrefix: "longhorn_backup",
			ItemTitle:    "AWS Access Key - longhorn-s3-backup - home-ops",
			Vault:        defaultVault,
			Tags:         []string{"aws", "longhorn", "s3", "backup", "kubernetes"},
			Description:  "AWS IAM credentials for Longhorn S3 backup access. " + managedBy,
			BucketName:   "longhorn-backups-home-ops",
			Region:       credential.DefaultRegion,
		},
		"home-assistant-postgres": {
			ServiceName:  "Home Assistant PostgreSQL S3 Backup",
			OutputPrefix: "home_assistant_postgres_backup",
			ItemTitle:    "AWS Access Key - home-assistant-postgres-s3-backup - home-ops",
			Vault:        defaultVault,
			Tags:         []string{"aws", "home-assistant", "postgresql", "s3", "backup", "database"},
			Description:  "AWS IAM credentials for Home Assistant PostgreSQL S3 backup access. " + managedBy,
			BucketName:   "home-assistant-postgres-backup-home-ops",
			Region:       credential.DefaultRegion,
		},
		// No Terraform outputs exist for unifi; the prefix only keeps the
		// entry valid.
		"unifi": {
			ServiceName:  "UniFi Controller API",
			OutputPrefix: "unifi_api",
			ItemTitle:    "Home-ops Unifi API",
			Vault:        defaultVault,
			Tags:         []string{"unifi", "api", "network", "controller"},
			Description:  "UniFi Controller API credentials for network management. Used by Terraform UniFi provider.",
			Region:       credential.DefaultRegion,
		},
		TemplateID: {
			ServiceName:  "Service Name",
			OutputPrefix: "service_backup",
			ItemTitle:    "AWS Access Key - service-s3-backup - home-ops",
			Vault:        defaultVault,
			Tags:         []string{"aws", "service", "s3", "backup"},
			Description:  "AWS IAM credentials for Service S3 backup access. " + managedBy,
			BucketName:   "service-backup-home-ops",
			Region:       credential.DefaultRegion,
		},
	}
}
