package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/logging"
	"github.com/systmms/keysync/pkg/credential"
)

// State is a step of the upsert protocol.
type State string

const (
	StateStart    State = "START"
	StateFetching State = "FETCHING"
	StateFetched  State = "FETCHED"
	StateChecking State = "CHECKING"
	StateExists   State = "EXISTS"
	StateAbsent   State = "ABSENT"
	StateUpdating State = "UPDATING"
	StateCreating State = "CREATING"

	StateDone         State = "DONE"
	StateFetchFailed  State = "FETCH_FAILED"
	StateUpdateFailed State = "UPDATE_FAILED"
	StateCreateFailed State = "CREATE_FAILED"
	StateCheckFailed  State = "CHECK_FAILED"
	StateInterrupted  State = "INTERRUPTED"
)

// Terminal reports whether the protocol stops in s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFetchFailed, StateUpdateFailed, StateCreateFailed, StateCheckFailed, StateInterrupted:
		return true
	}
	return false
}

// Action is the write a run performed against the store.
type Action string

const (
	ActionNone   Action = ""
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Result is the outcome of one Sync call.
type Result struct {
	Service     string
	State       State
	Action      Action
	AccessKeyID string
	// Trace lists every state visited, in order, ending with State.
	Trace    []State
	Err      error
	Duration time.Duration
}

// OK reports whether the run ended in DONE.
func (r Result) OK() bool {
	return r.State == StateDone
}

// Recorder receives run metrics. *metrics.SyncMetrics implements it.
type Recorder interface {
	RecordSyncStarted(service string)
	RecordStoreWrite(service, action string, ok bool)
	RecordSyncCompleted(service, state string, success bool, duration time.Duration)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the operator output logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics records every run on r.
func WithMetrics(r Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

// WithStrictLookup makes an inconclusive existence check terminal instead of
// treating it as "absent". It only has an effect when the storage implements
// credential.Prober.
func WithStrictLookup(strict bool) Option {
	return func(o *Orchestrator) { o.strictLookup = strict }
}

// Orchestrator runs the upsert protocol with one provider and one storage.
// It holds no per-run state and may be reused sequentially across services.
type Orchestrator struct {
	provider     credential.Provider
	storage      credential.Storage
	logger       *logging.Logger
	metrics      Recorder
	strictLookup bool
	now          func() time.Time
}

// NewOrchestrator creates an orchestrator over provider and storage.
func NewOrchestrator(provider credential.Provider, storage credential.Storage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		storage:  storage,
		logger:   logging.New(false, false),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the bookkeeping of a single Sync call.
type run struct {
	result Result
}

func (r *run) enter(s State) {
	r.result.State = s
	r.result.Trace = append(r.result.Trace, s)
}

func (r *run) fail(s State, err error) {
	r.enter(s)
	r.result.Err = err
}

// Sync fetches fresh credentials for cfg and creates or updates the target
// item. Exactly one existence check and at most one write are performed, and
// nothing is retried. Failures are reported on the logger and returned in
// Result.Err; Sync itself never panics on provider errors.
func (o *Orchestrator) Sync(ctx context.Context, cfg credential.ServiceConfig) Result {
	started := o.now()
	r := &run{result: Result{Service: cfg.ServiceName}}
	r.enter(StateStart)

	if o.metrics != nil {
		o.metrics.RecordSyncStarted(cfg.ServiceName)
	}
	defer func() {
		r.result.Duration = o.now().Sub(started)
		if o.metrics != nil {
			o.metrics.RecordSyncCompleted(cfg.ServiceName, string(r.result.State), r.result.OK(), r.result.Duration)
		}
	}()

	o.logger.Heading("Updating %s Credentials in 1Password", cfg.ServiceName)

	creds := o.fetch(ctx, r, cfg)
	if creds == nil {
		return r.result
	}
	defer creds.Destroy()

	r.enter(StateChecking)
	o.logger.Step("\nChecking if 1Password item exists...")
	exists, ok := o.check(ctx, r, cfg)
	if !ok {
		return r.result
	}

	if exists {
		r.enter(StateExists)
		o.logger.Info("Found existing item: %s", cfg.ItemTitle)
		o.write(ctx, r, cfg, creds, ActionUpdate)
	} else {
		r.enter(StateAbsent)
		o.logger.Warn("Item not found. Creating new item...")
		o.write(ctx, r, cfg, creds, ActionCreate)
	}

	if r.result.OK() {
		printSuccessSummary(o.logger, cfg, creds.AccessKeyID)
	}
	return r.result
}

func (o *Orchestrator) fetch(ctx context.Context, r *run, cfg credential.ServiceConfig) *credential.Credentials {
	r.enter(StateFetching)
	o.logger.Step("\nRetrieving new credentials...")

	creds, err := o.safeFetch(ctx, cfg)
	if ctxErr := ctx.Err(); ctxErr != nil {
		creds.Destroy()
		o.interrupted(r, "fetching credentials", ctxErr)
		return nil
	}
	if err != nil {
		creds.Destroy()
		var pe dserrors.ProviderError
		if !errors.As(err, &pe) {
			err = dserrors.ProviderError{Provider: "credential", Err: err}
		}
		r.fail(StateFetchFailed, err)
		o.logger.Error("Failed to retrieve credentials: %v", err)
		return nil
	}
	if creds == nil || creds.AccessKeyID == "" {
		creds.Destroy()
		r.fail(StateFetchFailed, dserrors.ProviderError{Provider: "credential", Err: fmt.Errorf("empty credentials returned")})
		o.logger.Error("Failed to retrieve credentials: empty credentials returned")
		return nil
	}

	r.enter(StateFetched)
	r.result.AccessKeyID = creds.AccessKeyID
	o.logger.Info("Retrieved new credentials")
	o.logger.Detail("  Access Key ID: %s", creds.AccessKeyID)
	return creds
}

// safeFetch turns a provider panic into a ProviderError.
func (o *Orchestrator) safeFetch(ctx context.Context, cfg credential.ServiceConfig) (creds *credential.Credentials, err error) {
	defer func() {
		if p := recover(); p != nil {
			creds = nil
			err = dserrors.ProviderError{Provider: "credential", Err: fmt.Errorf("unexpected failure: %v", p)}
		}
	}()
	return o.provider.Fetch(ctx, cfg)
}

func (o *Orchestrator) check(ctx context.Context, r *run, cfg credential.ServiceConfig) (exists bool, ok bool) {
	prober, canProbe := o.storage.(credential.Prober)
	if !o.strictLookup || !canProbe {
		exists = o.storage.Exists(ctx, cfg.ItemTitle, cfg.Vault)
		if ctxErr := ctx.Err(); ctxErr != nil {
			o.interrupted(r, "checking for the existing item", ctxErr)
			return false, false
		}
		return exists, true
	}

	status, err := prober.Probe(ctx, cfg.ItemTitle, cfg.Vault)
	if ctxErr := ctx.Err(); ctxErr != nil {
		o.interrupted(r, "checking for the existing item", ctxErr)
		return false, false
	}
	switch status {
	case credential.ItemPresent:
		return true, true
	case credential.ItemAbsent:
		return false, true
	}

	lookupErr := dserrors.StorageLookupError{Item: cfg.ItemTitle, Vault: cfg.Vault, Err: err}
	r.fail(StateCheckFailed, lookupErr)
	o.logger.Error("%v", lookupErr)
	o.logger.Print("No changes were written. Resolve the lookup problem and run again.")
	return false, false
}

func (o *Orchestrator) write(ctx context.Context, r *run, cfg credential.ServiceConfig, creds *credential.Credentials, action Action) {
	var ok bool
	r.result.Action = action
	if action == ActionUpdate {
		r.enter(StateUpdating)
		o.logger.Step("\nUpdating credentials in 1Password...")
		ok = o.storage.Update(ctx, cfg, creds)
	} else {
		r.enter(StateCreating)
		o.logger.Step("\nCreating item in 1Password...")
		ok = o.storage.Create(ctx, cfg, creds)
	}
	if o.metrics != nil {
		o.metrics.RecordStoreWrite(cfg.ServiceName, string(action), ok)
	}

	if ok {
		r.enter(StateDone)
		if action == ActionUpdate {
			o.logger.Info("Successfully updated credentials in 1Password!")
		} else {
			o.logger.Info("Successfully created new item in 1Password!")
		}
		return
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		o.interrupted(r, fmt.Sprintf("writing the item (%s)", action), ctxErr)
		printManualInstructions(o.logger, cfg, creds.AccessKeyID)
		return
	}

	failed := StateUpdateFailed
	if action == ActionCreate {
		failed = StateCreateFailed
	}
	r.fail(failed, dserrors.StorageWriteError{Op: string(action), Item: cfg.ItemTitle, Vault: cfg.Vault})
	if action == ActionUpdate {
		o.logger.Error("Failed to update item. Manual update required.")
	} else {
		o.logger.Error("Failed to create item. Manual creation required.")
	}
	printManualInstructions(o.logger, cfg, creds.AccessKeyID)
}

func (o *Orchestrator) interrupted(r *run, stage string, cause error) {
	err := dserrors.InterruptedError{Stage: stage, Err: cause}
	r.fail(StateInterrupted, err)
	o.logger.Error("%v", err)
}
