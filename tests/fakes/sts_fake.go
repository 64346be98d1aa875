package fakes

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// FakeSTSClient answers GetCallerIdentity with a fixed identity or error
//
// Example usage:
//
//	client := fakes.NewFakeSTSClient("123456789012", "arn:aws:iam::123456789012:user/redis-backup")
type FakeSTSClient struct {
	Account string
	ARN     string
	UserID  string
	Err     error

	mu    sync.Mutex
	calls int
}

// NewFakeSTSClient creates a client returning the given identity
func NewFakeSTSClient(account, arn string) *FakeSTSClient {
	return &FakeSTSClient{Account: account, ARN: arn, UserID: "AIDAEXAMPLE"}
}

// GetCallerIdentity implements the STS call
func (f *FakeSTSClient) GetCallerIdentity(ctx context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String(f.Account),
		Arn:     aws.String(f.ARN),
		UserId:  aws.String(f.UserID),
	}, nil
}

// CallCount returns the number of GetCallerIdentity calls
func (f *FakeSTSClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
