package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/systmms/keysync/internal/config"
	"github.com/systmms/keysync/internal/logging"
	"github.com/systmms/keysync/internal/verify"
	"github.com/systmms/keysync/pkg/credential"
	"github.com/systmms/keysync/tests/fakes"
	"github.com/systmms/keysync/tests/testutil"
)

const (
	testAccount = "team.1password.com"

	// Disables the env script and mise so only tofu and op are called.
	plainToolsConfig = `version: 0
terraform:
  env_script: ""
  use_mise: never
onepassword:
  use_mise: never
`
)

var fixedNow = time.Date(2025, 7, 19, 16, 25, 0, 0, time.UTC)

type harness struct {
	cfg    *config.Config
	rt     *Runtime
	mock   *testutil.MockCommandExecutor
	sts    *fakes.FakeSTSClient
	stdout *bytes.Buffer
	log    *bytes.Buffer
	root   string
}

// newHarness enters a temporary repository root holding files plus the
// defaults every command test needs; an empty content drops a default file.
// Tests using it must not run in parallel.
func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()

	all := map[string]string{
		"Taskfile.yml": "version: '3'\n",
		".env":         "OP_ACCOUNT=" + testAccount + "\n",
		"keysync.yaml": plainToolsConfig,
	}
	for name, content := range files {
		if content == "" {
			delete(all, name)
			continue
		}
		all[name] = content
	}

	keyring.MockInit()
	testutil.SetupTestEnv(t, nil, config.AccountVar)

	h := &harness{
		mock:   testutil.NewMockCommandExecutor(),
		sts:    fakes.NewFakeSTSClient("123456789012", "arn:aws:iam::123456789012:user/postgresql-backup"),
		stdout: &bytes.Buffer{},
		log:    &bytes.Buffer{},
	}
	h.root = testutil.ChdirTemp(t, all)
	h.mock.StrictMode = true
	h.rt = &Runtime{
		Executor: h.mock,
		NewSTS: func(ctx context.Context, creds *credential.Credentials, region string) (verify.STSAPI, error) {
			return h.sts, nil
		},
		Now: func() time.Time { return fixedNow },
	}
	h.cfg = &config.Config{
		Path:    config.DefaultPath,
		EnvFile: config.DefaultEnvFile,
		Logger:  logging.NewWithWriter(h.log, false, true),
	}
	return h
}

func (h *harness) execute(cmd *cobra.Command, args ...string) error {
	// The root command silences these in main.
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(h.stdout)
	cmd.SetErr(h.log)
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}
