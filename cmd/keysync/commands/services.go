package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/keysync/internal/config"
	"github.com/systmms/keysync/pkg/credential"
)

// NewServicesCommand creates the services command group
func NewServicesCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Inspect configured services and the stored 1Password account",
	}

	cmd.AddCommand(
		newServicesListCommand(cfg),
		newServicesShowCommand(cfg),
		newServicesSetAccountCommand(cfg),
	)
	return cmd
}

func newServicesListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "ID\tNAME\tITEM\tVAULT\n")
			_, _ = fmt.Fprintf(w, "--\t----\t----\t-----\n")
			for _, id := range reg.List() {
				svc, err := reg.Get(id)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, svc.ServiceName, svc.ItemTitle, svc.Vault)
			}
			return w.Flush()
		},
	}
}

func newServicesShowCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <service>",
		Short: "Show a service's configuration",
		Args:  cobra.ExactArgs(1),
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

			cfg.Logger.Heading("Configuration for %s", args[0])
			printServiceConfig(cmd, svc)
			return nil
		},
	}
}

func printServiceConfig(cmd *cobra.Command, svc credential.ServiceConfig) {
	out := cmd.OutOrStdout()
	bucket := svc.BucketName
	if bucket == "" {
		bucket = "(none)"
	}
	fmt.Fprintf(out, "Service Name: %s\n", svc.ServiceName)
	fmt.Fprintf(out, "Terraform Prefix: %s\n", svc.OutputPrefix)
	fmt.Fprintf(out, "  Outputs: %s, %s\n", svc.AccessKeyOutput(), svc.SecretKeyOutput())
	fmt.Fprintf(out, "1Password Item: %s\n", svc.ItemTitle)
	fmt.Fprintf(out, "Vault: %s\n", svc.Vault)
	fmt.Fprintf(out, "S3 Bucket: %s\n", bucket)
	fmt.Fprintf(out, "Region: %s\n", svc.EffectiveRegion())
	fmt.Fprintf(out, "Tags: %s\n", strings.Join(svc.Tags, ", "))
}

func newServicesSetAccountCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set-account <account>",
		Short: "Store the 1Password account in the OS keyring",
		Long: `Store the 1Password account (for example my.1password.com) in the OS keyring.
It is used when OP_ACCOUNT is not set in .env, the environment or keysync.yaml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.StoreAccount(args[0]); err != nil {
				return err
			}
			cfg.Logger.Info("Stored 1Password account in the OS keyring (service %q)", config.KeyringService)
			return nil
		},
	}
}
