package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/registry"
	"github.com/systmms/keysync/pkg/credential"
)

func redisConfig() credential.ServiceConfig {
	return credential.ServiceConfig{
		ServiceName:  "Redis S3 Backup",
		OutputPrefix: "redis_backup",
		ItemTitle:    "AWS Access Key - redis-s3-backup - home-ops",
		Vault:        "Automation",
		Tags:         []string{"aws", "redis"},
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefault()

	assert.Equal(t, []string{"home-assistant-postgres", "longhorn", "postgresql", "unifi"}, reg.List())
	assert.True(t, reg.Has(registry.TemplateID))

	cfg, err := reg.Get("postgresql")
	require.NoError(t, err)
	assert.Equal(t, "postgresql_backup_access_key_id", cfg.AccessKeyOutput())
	assert.Equal(t, "postgresql_backup_secret_access_key", cfg.SecretKeyOutput())
	assert.Equal(t, "Automation", cfg.Vault)
	assert.Equal(t, "postgresql-backup-home-ops", cfg.BucketName)

	unifi, err := reg.Get("unifi")
	require.NoError(t, err)
	assert.Empty(t, unifi.BucketName)
	assert.Equal(t, "Home-ops Unifi API", unifi.ItemTitle)
}

func TestDefaultsAreCopies(t *testing.T) {
	t.Parallel()

	first := registry.Defaults()
	first["postgresql"] = credential.ServiceConfig{}

	assert.Equal(t, "PostgreSQL S3 Backup", registry.Defaults()["postgresql"].ServiceName)
}

func TestGetUnknownService(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefault()

	_, err := reg.Get("redis")
	require.Error(t, err)

	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "Unknown service 'redis'. Available: home-assistant-postgres, longhorn, postgresql, template, unifi")
}

func TestRegister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		mutate  func(*credential.ServiceConfig)
		wantErr string
	}{
		{name: "new service", id: "redis"},
		{name: "empty id", id: "", wantErr: "service id cannot be empty"},
		{name: "duplicate id", id: "postgresql", mutate: func(c *credential.ServiceConfig) { c.ItemTitle = "fresh" }, wantErr: "already registered"},
		{
			name:    "duplicate item title",
			id:      "redis",
			mutate:  func(c *credential.ServiceConfig) { c.ItemTitle = "Home-ops Unifi API" },
			wantErr: "already used by service 'unifi'",
		},
		{
			name:    "missing vault",
			id:      "redis",
			mutate:  func(c *credential.ServiceConfig) { c.Vault = "" },
			wantErr: "onepassword_vault",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := registry.NewDefault()
			cfg := redisConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			err := reg.Register(tt.id, cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			got, err := reg.Get(tt.id)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
			assert.Contains(t, reg.List(), tt.id)
		})
	}
}

func TestNewRejectsDuplicateTitles(t *testing.T) {
	t.Parallel()

	a := redisConfig()
	b := redisConfig()
	b.ServiceName = "Other"

	_, err := registry.New(map[string]credential.ServiceConfig{"a": a, "b": b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used by service 'a'")
}

func TestRegistriesAreIsolated(t *testing.T) {
	t.Parallel()

	one := registry.NewDefault()
	two := registry.NewDefault()

	require.NoError(t, one.Register("redis", redisConfig()))
	assert.True(t, one.Has("redis"))
	assert.False(t, two.Has("redis"))
}

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("overrides and adds", func(t *testing.T) {
		t.Parallel()

		reg := registry.NewDefault()
		pg := registry.Defaults()["postgresql"]
		pg.Vault = "Infrastructure"

		err := reg.Merge(map[string]credential.ServiceConfig{
			"postgresql": pg,
			"redis":      redisConfig(),
		})
		require.NoError(t, err)

		got, err := reg.Get("postgresql")
		require.NoError(t, err)
		assert.Equal(t, "Infrastructure", got.Vault)
		assert.True(t, reg.Has("redis"))
	})

	t.Run("title clash leaves registry unchanged", func(t *testing.T) {
		t.Parallel()

		reg := registry.NewDefault()
		clash := redisConfig()
		clash.ItemTitle = "AWS Access Key - longhorn-s3-backup - home-ops"

		err := reg.Merge(map[string]credential.ServiceConfig{"redis": clash})
		require.Error(t, err)
		assert.False(t, reg.Has("redis"))
	})

	t.Run("title clash names the incoming service", func(t *testing.T) {
		t.Parallel()

		reg := registry.NewDefault()
		clash := redisConfig()
		clash.ItemTitle = "AWS Access Key - postgresql-s3-backup - home-ops"

		// pg2 sorts before postgresql.
		err := reg.Merge(map[string]credential.ServiceConfig{"pg2": clash})
		var cfgErr dserrors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "services.pg2.onepassword_item_title", cfgErr.Field)
		assert.Contains(t, cfgErr.Message, "already used by service 'postgresql'")
		assert.False(t, reg.Has("pg2"))
	})

	t.Run("title clash between incoming services", func(t *testing.T) {
		t.Parallel()

		reg := registry.NewDefault()
		a, b := redisConfig(), redisConfig()
		b.OutputPrefix = "valkey_backup"

		err := reg.Merge(map[string]credential.ServiceConfig{"redis": a, "valkey": b})
		var cfgErr dserrors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "services.valkey.onepassword_item_title", cfgErr.Field)
		assert.Contains(t, cfgErr.Message, "'redis'")
	})

	t.Run("invalid entry", func(t *testing.T) {
		t.Parallel()

		reg := registry.NewDefault()
		err := reg.Merge(map[string]credential.ServiceConfig{"redis": {ServiceName: "Redis"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "terraform_output_prefix")
	})
}
