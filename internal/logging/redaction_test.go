package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/keysync/internal/logging"
)

func TestSecretFormatsRedactedAtEveryLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)

	secretKey := logging.Secret("wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY")
	logger.Info("Secret access key: %s", secretKey)
	logger.Warn("Secret access key: %v", secretKey)
	logger.Debug("Secret access key: %#v", secretKey)

	assert.NotContains(t, buf.String(), string(secretKey))
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("[REDACTED]")))
}

func TestRedactScrubsCommandStderr(t *testing.T) {
	t.Parallel()

	secretKey := "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"
	stderr := "[ERROR] invalid field assignment \"password=" + secretKey + "\"\n"

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)
	logger.Error("op item edit failed: %s", logging.Redact(stderr, []string{secretKey}))

	assert.Contains(t, buf.String(), "password=[REDACTED]")
	assert.NotContains(t, buf.String(), secretKey)
}
