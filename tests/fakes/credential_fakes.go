package fakes

import (
	"context"
	"sync"

	"github.com/systmms/keysync/pkg/credential"
)

// FakeProvider returns a fixed credential pair, or a fixed error, and counts
// calls. A fresh Credentials value is built on each Fetch because callers
// destroy it after the run.
//
// Example usage:
//
//	provider := fakes.NewFakeProvider("AKIA123", "secret1")
//	creds, err := provider.Fetch(ctx, cfg)
type FakeProvider struct {
	AccessKeyID string
	Secret      string
	Err         error

	// BeforeReturn, when set, runs inside Fetch before it returns.
	BeforeReturn func(ctx context.Context)

	mu      sync.Mutex
	fetched []credential.ServiceConfig
}

// NewFakeProvider creates a provider returning the given pair.
func NewFakeProvider(accessKeyID, secret string) *FakeProvider {
	return &FakeProvider{AccessKeyID: accessKeyID, Secret: secret}
}

// Fetch implements credential.Provider.
func (f *FakeProvider) Fetch(ctx context.Context, cfg credential.ServiceConfig) (*credential.Credentials, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, cfg)
	f.mu.Unlock()

	if f.BeforeReturn != nil {
		f.BeforeReturn(ctx)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return credential.NewCredentials(f.AccessKeyID, []byte(f.Secret))
}

// FetchCount returns the number of Fetch calls.
func (f *FakeProvider) FetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

// StorageCall records one call against FakeStorage.
type StorageCall struct {
	Op          string // "exists", "probe", "create" or "update"
	ItemTitle   string
	Vault       string
	AccessKeyID string
	Secret      string
}

// FakeStorage is an in-memory credential.Storage with scripted results.
//
// Example usage:
//
//	storage := &fakes.FakeStorage{ExistsResult: true, UpdateResult: true}
type FakeStorage struct {
	ExistsResult bool
	CreateResult bool
	UpdateResult bool

	mu    sync.Mutex
	calls []StorageCall
}

// Exists implements credential.Storage.
func (f *FakeStorage) Exists(_ context.Context, itemTitle, vault string) bool {
	f.record(StorageCall{Op: "exists", ItemTitle: itemTitle, Vault: vault})
	return f.ExistsResult
}

// Create implements credential.Storage.
func (f *FakeStorage) Create(_ context.Context, cfg credential.ServiceConfig, creds *credential.Credentials) bool {
	f.record(writeCall("create", cfg, creds))
	return f.CreateResult
}

// Update implements credential.Storage.
func (f *FakeStorage) Update(_ context.Context, cfg credential.ServiceConfig, creds *credential.Credentials) bool {
	f.record(writeCall("update", cfg, creds))
	return f.UpdateResult
}

// Calls returns a copy of the recorded calls.
func (f *FakeStorage) Calls() []StorageCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StorageCall(nil), f.calls...)
}

// Count returns the number of calls of the given operation.
func (f *FakeStorage) Count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *FakeStorage) record(call StorageCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func writeCall(op string, cfg credential.ServiceConfig, creds *credential.Credentials) StorageCall {
	call := StorageCall{Op: op, ItemTitle: cfg.ItemTitle, Vault: cfg.Vault, AccessKeyID: creds.AccessKeyID}
	_ = creds.RevealSecret(func(secret string) error {
		call.Secret = secret
		return nil
	})
	return call
}

// FakeProbingStorage adds a scripted three-way lookup to FakeStorage.
type FakeProbingStorage struct {
	FakeStorage
	ProbeStatus credential.ItemStatus
	ProbeErr    error
}

// Probe implements credential.Prober.
func (f *FakeProbingStorage) Probe(_ context.Context, itemTitle, vault string) (credential.ItemStatus, error) {
	f.record(StorageCall{Op: "probe", ItemTitle: itemTitle, Vault: vault})
	return f.ProbeStatus, f.ProbeErr
}

var (
	_ credential.Provider = (*FakeProvider)(nil)
	_ credential.Storage  = (*FakeStorage)(nil)
	_ credential.Prober   = (*FakeProbingStorage)(nil)
)
