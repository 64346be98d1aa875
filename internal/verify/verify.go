// Package verify checks that the credentials stored for a service are
// accepted by AWS.
package verify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/logging"
	"github.com/systmms/keysync/pkg/credential"
)

// STSAPI is the subset of the STS client used here
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ClientFactory builds an STS client authenticated with creds
type ClientFactory func(ctx context.Context, creds *credential.Credentials, region string) (STSAPI, error)

// ItemReader reads the credentials currently stored in a secret store item
type ItemReader interface {
	Read(ctx context.Context, itemTitle, vault string) (*credential.Credentials, error)
}

// Identity is the AWS principal a key belongs to
type Identity struct {
	Account string
	ARN     string
	UserID  string
}

// Verifier reads a stored key pair and asks STS who it belongs to
type Verifier struct {
	reader    ItemReader
	newClient ClientFactory
	logger    *logging.Logger
}

// NewVerifier creates a verifier using the AWS SDK
func NewVerifier(reader ItemReader, logger *logging.Logger) *Verifier {
	return NewVerifierWithClient(reader, logger, NewSTSClient)
}

// NewVerifierWithClient creates a verifier with a custom client factory (for testing)
func NewVerifierWithClient(reader ItemReader, logger *logging.Logger, factory ClientFactory) *Verifier {
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &Verifier{reader: reader, newClient: factory, logger: logger}
}

// Verify reads cfg's item and calls sts:GetCallerIdentity with its key pair
func (v *Verifier) Verify(ctx context.Context, cfg credential.ServiceConfig) (Identity, error) {
	v.logger.Step("Reading %s from vault %s...", cfg.ItemTitle, cfg.Vault)
	creds, err := v.reader.Read(ctx, cfg.ItemTitle, cfg.Vault)
	if err != nil {
		return Identity{}, err
	}
	defer creds.Destroy()
	v.logger.Detail("  Access Key ID: %s", creds.AccessKeyID)

	client, err := v.newClient(ctx, creds, cfg.EffectiveRegion())
	if err != nil {
		return Identity{}, err
	}

	v.logger.Step("Calling sts:GetCallerIdentity in %s...", cfg.EffectiveRegion())
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Identity{}, dserrors.InterruptedError{Stage: "verifying credentials", Err: ctxErr}
		}
		return Identity{}, dserrors.UserError{
			Message:    fmt.Sprintf("AWS rejected the credentials stored in '%s'", cfg.ItemTitle),
			Details:    err.Error(),
			Suggestion: suggestion(err),
			Err:        err,
		}
	}

	return Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

func suggestion(err error) string {
	if s := dserrors.Suggestion("aws", err); s != "" {
		return s
	}
	return "Check the key is active in IAM and run 'keysync update <service>' to store the current one"
}

// NewSTSClient builds a real STS client from a static key pair
func NewSTSClient(ctx context.Context, creds *credential.Credentials, region string) (STSAPI, error) {
	var cfg aws.Config
	err := creds.RevealSecret(func(secret string) error {
		var err error
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(
				awscredentials.NewStaticCredentialsProvider(creds.AccessKeyID, secret, ""),
			),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sts.NewFromConfig(cfg), nil
}
