// Package fakes provides test doubles for keysync's credential capabilities
// and external SDK clients.
//
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior. They record every call so tests can assert on exactly
// which operations a sync run performed:
//
//	storage := &fakes.FakeStorage{ExistsResult: false, CreateResult: true}
//	result := orchestrator.Sync(ctx, cfg)
//	assert.Equal(t, 1, storage.Count("create"))
package fakes
