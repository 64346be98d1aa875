// Package rotation implements the credential sync workflow: an upsert of a
// freshly fetched AWS access key pair into a secret store.
//
// # Protocol
//
// Each Sync call walks a small state machine and stops at the first terminal
// state:
//
//	START -> FETCHING -> FETCHED -> CHECKING -> (EXISTS | ABSENT)
//	EXISTS  -> UPDATING -> (DONE | UPDATE_FAILED)
//	ABSENT  -> CREATING -> (DONE | CREATE_FAILED)
//	FETCHING -> FETCH_FAILED
//
// Two extra terminal states exist: INTERRUPTED when the context is cancelled
// during a blocking step, and CHECK_FAILED when strict lookup is enabled and
// the store cannot say whether the item exists.
//
// The protocol never short-circuits on "already up to date": when the item
// exists it is always updated, so two consecutive runs against unchanged
// Terraform state both end in DONE with one update each. An update failure is
// never retried and never escalated to a create.
//
// # Output
//
// Progress, a success summary with example environment bindings, and manual
// remediation steps are written to the configured logger. The secret access
// key is never printed; only the access key id appears in clear.
//
// # Usage
//
//	o := rotation.NewOrchestrator(provider, storage,
//	    rotation.WithLogger(logger),
//	    rotation.WithMetrics(metrics.New()),
//	)
//	result := o.Sync(ctx, cfg)
//	if !result.OK() {
//	    return result.Err
//	}
package rotation
