package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/keysync/internal/config"
	"github.com/systmms/keysync/internal/storage"
	"github.com/systmms/keysync/internal/verify"
)

// NewVerifyCommand creates the verify command
func NewVerifyCommand(cfg *config.Config) *cobra.Command {
	return newVerifyCommand(cfg, DefaultRuntime())
}

func newVerifyCommand(cfg *config.Config, rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <service>",
		Short: "Check that the key stored in 1Password is accepted by AWS",
		Long: `Read the service's item from 1Password and call sts:GetCallerIdentity with
the stored key pair. The secret access key is never printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}
			svc, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			account, _, err := cfg.ResolveAccount()
			if err != nil {
				return err
			}
			opMise, err := cfg.OnePasswordMise()
			if err != nil {
				return err
			}

			logger := cfg.Logger
			store := storage.NewOnePasswordStorageWithExecutor(account, opMise, logger, rt.Executor)
			verifier := verify.NewVerifierWithClient(store, logger, rt.NewSTS)

			logger.Heading("Verifying %s Credentials", svc.ServiceName)
			id, err := verifier.Verify(cmd.Context(), svc)
			if err != nil {
				return err
			}

			logger.Info("AWS accepted the stored credentials")
			logger.Detail("  Account: %s", id.Account)
			logger.Detail("  ARN:     %s", id.ARN)
			return nil
		},
	}
}
