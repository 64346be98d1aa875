package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/keysync/internal/config"
	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/metrics"
	"github.com/systmms/keysync/internal/providers"
	"github.com/systmms/keysync/internal/registry"
	"github.com/systmms/keysync/internal/storage"
	"github.com/systmms/keysync/pkg/rotation"
)

const pushTimeout = 10 * time.Second

type updateOptions struct {
	terraformDir string
	list         bool
	strictLookup bool
	rootMarker   string
	pushgateway  string
}

// NewUpdateCommand creates the update command
func NewUpdateCommand(cfg *config.Config) *cobra.Command {
	return newUpdateCommand(cfg, DefaultRuntime())
}

func newUpdateCommand(cfg *config.Config, rt *Runtime) *cobra.Command {
	var opts updateOptions

	cmd := &cobra.Command{
		Use:   "update <service>",
		Short: "Update a service's AWS credentials in 1Password",
		Long: `Read the service's access key pair from Terraform outputs and write it to
its 1Password item, creating the item when it does not exist yet.

Run from the repository root. OP_ACCOUNT is read from .env, the environment,
keysync.yaml or the OS keyring.`,
		Example: `  keysync update postgresql          # Update PostgreSQL backup credentials
  keysync update longhorn            # Update Longhorn backup credentials
  keysync update --list              # List available services`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}

			if opts.list {
				printServiceList(cmd.OutOrStdout(), reg)
				return nil
			}
			if len(args) == 0 {
				return dserrors.UserError{
					Message:    "Service name is required",
					Suggestion: "Use --list to see available services",
				}
			}

			return runUpdate(cmd.Context(), cfg, rt, reg, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.terraformDir, "terraform-dir", "", fmt.Sprintf("Terraform directory (default: %s)", providers.DefaultTerraformDir))
	cmd.Flags().BoolVar(&opts.list, "list", false, "List available services")
	cmd.Flags().BoolVar(&opts.strictLookup, "strict-lookup", false, "Stop instead of creating when the item lookup fails for a reason other than not-found")
	cmd.Flags().StringVar(&opts.rootMarker, "root-marker", config.DefaultRootMarker, "File that must exist in the working directory (empty disables the check)")
	cmd.Flags().StringVar(&opts.pushgateway, "pushgateway", "", "Prometheus Pushgateway URL to push run metrics to")

	return cmd
}

// runUpdate validates everything it can before the first external call
func runUpdate(ctx context.Context, cfg *config.Config, rt *Runtime, reg *registry.Registry, id string, opts updateOptions) error {
	logger := cfg.Logger

	if err := config.CheckRoot(opts.rootMarker); err != nil {
		return err
	}
	account, source, err := cfg.ResolveAccount()
	if err != nil {
		return err
	}
	logger.Debug("Using 1Password account from %s", source)

	svc, err := reg.Get(id)
	if err != nil {
		return err
	}
	tfCfg, err := cfg.TerraformConfig(opts.terraformDir)
	if err != nil {
		return err
	}
	opMise, err := cfg.OnePasswordMise()
	if err != nil {
		return err
	}

	provider := providers.NewTerraformProviderWithExecutor(tfCfg, logger, rt.Executor)
	store := storage.NewOnePasswordStorageWithExecutor(account, opMise, logger, rt.Executor)
	m := metrics.New()

	orch := rotation.NewOrchestrator(provider, store,
		rotation.WithLogger(logger),
		rotation.WithMetrics(m),
		rotation.WithStrictLookup(opts.strictLookup),
	)
	result := orch.Sync(ctx, svc)
	logger.Debug("%s finished in %s: %s", id, result.Duration, result.State)

	if settings := cfg.Metrics(opts.pushgateway); settings.Pushgateway != "" {
		// The run context may already be cancelled; the push still goes out.
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		if err := m.Push(pushCtx, settings.Pushgateway, settings.Job); err != nil {
			logger.Warn("Metrics were not pushed: %v", err)
		} else {
			logger.Debug("Pushed metrics to %s", settings.Pushgateway)
		}
		cancel()
	}

	if !result.OK() {
		return reported(result.Err)
	}
	return nil
}

func printServiceList(w io.Writer, reg *registry.Registry) {
	fmt.Fprintln(w, "Available services:")
	for _, id := range reg.List() {
		fmt.Fprintf(w, "  - %s\n", id)
	}
}
