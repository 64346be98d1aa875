package rotation

import (
	"strings"

	"github.com/systmms/keysync/internal/logging"
	"github.com/systmms/keysync/pkg/credential"
)

// secretPlaceholder stands in for the secret access key in every message.
const secretPlaceholder = "[REDACTED]"

// printManualInstructions tells the operator how to finish the write by hand.
// Only identifying fields are printed.
func printManualInstructions(logger *logging.Logger, cfg credential.ServiceConfig, accessKeyID string) {
	logger.Print("\nManual update instructions:")
	logger.Print("1. Open 1Password")
	logger.Print("2. Find/Create item: %s", cfg.ItemTitle)
	logger.Print("   in vault: %s", cfg.Vault)
	logger.Print("3. Update fields:")
	logger.Print("   - Username: %s", accessKeyID)
	logger.Print("   - Password: %s", secretPlaceholder)
}

func printSuccessSummary(logger *logging.Logger, cfg credential.ServiceConfig, accessKeyID string) {
	rule := strings.Repeat("=", 44)
	logger.Print("")
	logger.Print("%s", rule)
	logger.Info("Credentials updated in 1Password!")
	logger.Print("%s", rule)

	logger.Step("\nNext steps for %s:", cfg.ServiceName)
	logger.Print("1. Retrieve credentials from 1Password when configuring")
	if cfg.BucketName == "" {
		return
	}

	logger.Print("2. Use the following S3 bucket:")
	logger.Detail("   %s", cfg.BucketName)
	logger.Print("\n3. Example environment variables:")
	logger.Detail("   export AWS_ACCESS_KEY_ID='%s'", accessKeyID)
	logger.Detail("   export AWS_SECRET_ACCESS_KEY='[From 1Password]'")
	logger.Detail("   export S3_BUCKET='%s'", cfg.BucketName)
	logger.Detail("   export AWS_REGION='%s'", cfg.EffectiveRegion())
}
