package verify_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/logging"
	"github.com/systmms/keysync/internal/storage"
	"github.com/systmms/keysync/internal/verify"
	"github.com/systmms/keysync/pkg/credential"
	"github.com/systmms/keysync/pkg/exec"
	"github.com/systmms/keysync/tests/fakes"
	"github.com/systmms/keysync/tests/testutil"
)

const testSecret = "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"

var opResponses testutil.OnePasswordMockResponses

func service() credential.ServiceConfig {
	return credential.ServiceConfig{
		ServiceName:  "Redis S3 Backup",
		OutputPrefix: "redis_backup",
		ItemTitle:    "X",
		Vault:        "V",
		Region:       "eu-west-1",
	}
}

type harness struct {
	verifier *verify.Verifier
	client   *fakes.FakeSTSClient
	mock     *testutil.MockCommandExecutor
	out      *bytes.Buffer
	seenID   string
	seenKey  string
	region   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		client: fakes.NewFakeSTSClient("123456789012", "arn:aws:iam::123456789012:user/redis-backup"),
		mock:   testutil.NewMockCommandExecutor(),
		out:    &bytes.Buffer{},
	}
	logger := logging.NewWithWriter(h.out, false, true)
	reader := storage.NewOnePasswordStorageWithExecutor("my.1password.com", exec.MiseNever, logger, h.mock)

	factory := func(_ context.Context, creds *credential.Credentials, region string) (verify.STSAPI, error) {
		h.seenID = creds.AccessKeyID
		h.region = region
		_ = creds.RevealSecret(func(secret string) error {
			h.seenKey = secret
			return nil
		})
		return h.client, nil
	}
	h.verifier = verify.NewVerifierWithClient(reader, logger, factory)
	return h
}

func TestVerify(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.mock.AddResponse("op item get X", opResponses.Item("X", "V", "AKIA123", testSecret))

	id, err := h.verifier.Verify(context.Background(), service())
	require.NoError(t, err)

	assert.Equal(t, verify.Identity{
		Account: "123456789012",
		ARN:     "arn:aws:iam::123456789012:user/redis-backup",
		UserID:  "AIDAEXAMPLE",
	}, id)
	assert.Equal(t, "AKIA123", h.seenID)
	assert.Equal(t, testSecret, h.seenKey)
	assert.Equal(t, "eu-west-1", h.region)
	assert.Equal(t, 1, h.client.CallCount())

	calls := h.mock.CallsMatching("op item get")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Args, "--format")
	testutil.AssertNoSecretLeak(t, h.out.String(), []string{testSecret})
}

func TestVerifyRejectedKey(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.mock.AddResponse("op item get X", opResponses.Item("X", "V", "AKIA123", testSecret))
	h.client.Err = errors.New("operation error STS: GetCallerIdentity, api error InvalidClientTokenId: The security token included in the request is invalid")

	_, err := h.verifier.Verify(context.Background(), service())
	require.Error(t, err)

	var userErr dserrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, err.Error(), "AWS rejected the credentials stored in 'X'")
	assert.Contains(t, userErr.Suggestion, "propagate")
}

func TestVerifyMissingItem(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.mock.AddResponse("op item get X", opResponses.ItemNotFound("X", "V"))

	_, err := h.verifier.Verify(context.Background(), service())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in vault 'V'")
	assert.Zero(t, h.client.CallCount())
}

func TestVerifyCancelled(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.mock.AddResponse("op item get X", opResponses.Item("X", "V", "AKIA123", testSecret))

	ctx, cancel := context.WithCancel(context.Background())
	h.mock.OnExecute = func(context.Context, testutil.RecordedCall) { cancel() }

	_, err := h.verifier.Verify(ctx, service())
	require.Error(t, err)
	assert.True(t, dserrors.IsInterrupted(err))
}
