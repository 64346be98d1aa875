package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/keysync/internal/config"
	dserrors "github.com/systmms/keysync/internal/errors"
)

func TestServices_List(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.execute(NewServicesCommand(h.cfg), "list"))

	lines := strings.Split(strings.TrimSpace(h.stdout.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, []string{"ID", "NAME", "ITEM", "VAULT"}, strings.Fields(lines[0]))
	assert.True(t, strings.HasPrefix(lines[2], "home-assistant-postgres "))
	assert.True(t, strings.HasPrefix(lines[4], "postgresql "))
	assert.Contains(t, lines[4], "AWS Access Key - postgresql-s3-backup - home-ops")
	assert.NotContains(t, h.stdout.String(), "template")
}

func TestServices_Show(t *testing.T) {
	t.Run("with bucket", func(t *testing.T) {
		h := newHarness(t, nil)

		require.NoError(t, h.execute(NewServicesCommand(h.cfg), "show", "longhorn"))

		out := h.stdout.String()
		assert.Contains(t, out, "Service Name: Longhorn S3 Backup\n")
		assert.Contains(t, out, "Terraform Prefix: longhorn_backup\n")
		assert.Contains(t, out, "  Outputs: longhorn_backup_access_key_id, longhorn_backup_secret_access_key\n")
		assert.Contains(t, out, "1Password Item: AWS Access Key - longhorn-s3-backup - home-ops\n")
		assert.Contains(t, out, "Vault: Automation\n")
		assert.Contains(t, out, "S3 Bucket: longhorn-backups-home-ops\n")
		assert.Contains(t, out, "Region: us-west-2\n")
		assert.Contains(t, out, "Tags: aws, longhorn, s3, backup, kubernetes\n")
		assert.Contains(t, h.log.String(), "Configuration for longhorn")
	})

	t.Run("without bucket", func(t *testing.T) {
		h := newHarness(t, nil)

		require.NoError(t, h.execute(NewServicesCommand(h.cfg), "show", "unifi"))
		assert.Contains(t, h.stdout.String(), "S3 Bucket: (none)\n")
	})

	t.Run("unknown", func(t *testing.T) {
		h := newHarness(t, nil)

		err := h.execute(NewServicesCommand(h.cfg), "show", "redis")
		var cfgErr dserrors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Message, "Unknown service 'redis'")
	})
}

func TestServices_SetAccount(t *testing.T) {
	h := newHarness(t, map[string]string{".env": ""})

	require.NoError(t, h.execute(NewServicesCommand(h.cfg), "set-account", "keyring.1password.com"))

	stored, err := keyring.Get(config.KeyringService, config.AccountVar)
	require.NoError(t, err)
	assert.Equal(t, "keyring.1password.com", stored)

	// The stored account is picked up once nothing else names one.
	require.NoError(t, h.cfg.Load())
	account, source, err := h.cfg.ResolveAccount()
	require.NoError(t, err)
	assert.Equal(t, "keyring.1password.com", account)
	assert.Equal(t, config.SourceKeyring, source)
}
