package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/systmms/keysync/internal/config"
	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/providers"
	"github.com/systmms/keysync/internal/scaffold"
)

type generateOptions struct {
	interactive  bool
	displayName  string
	bucket       string
	vault        string
	tags         []string
	terraformDir string
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand(cfg *config.Config) *cobra.Command {
	return newGenerateCommand(cfg, DefaultRuntime())
}

func newGenerateCommand(cfg *config.Config, rt *Runtime) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [service]",
		Short: "Generate configuration for a new backup service",
		Long: `Generate the keysync.yaml entry, Terraform IAM resources and S3 bucket block
for a new service. With --interactive every value is prompted for, offering
defaults derived from the service name.`,
		Example: `  keysync generate -i
  keysync generate redis --vault Infrastructure`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := collectAnswers(cmd, cfg, args, opts)
			if err != nil {
				return err
			}

			if err := cfg.Load(); err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}
			svc := answers.ServiceConfig()
			if err := reg.Register(answers.ID, svc); err != nil {
				return err
			}

			data := scaffold.NewTemplateData(answers, rt.Now())
			terraform, err := scaffold.RenderTerraform(data)
			if err != nil {
				return err
			}
			bucket, err := scaffold.RenderBucket(data)
			if err != nil {
				return err
			}
			snippet, err := scaffold.RenderServiceYAML(answers.ID, svc)
			if err != nil {
				return err
			}

			tfDir := opts.terraformDir
			if tfDir == "" {
				tfDir = providers.DefaultTerraformDir
			}

			logger := cfg.Logger
			out := cmd.OutOrStdout()
			logger.Info("Configuration generated for %s", answers.ID)

			logger.Step("\nGenerated Terraform configuration:")
			fmt.Fprintln(out, terraform)
			logger.Step("\nGenerated S3 bucket configuration:")
			fmt.Fprintln(out, bucket)
			logger.Step("\nkeysync.yaml entry:")
			fmt.Fprintln(out, snippet)

			logger.Detail("\nNext steps:")
			fmt.Fprintf(out, "1. Add the Terraform configuration to %s\n", filepath.Join(tfDir, "s3-iam-access.tf"))
			fmt.Fprintf(out, "2. Add the S3 bucket configuration to %s\n", filepath.Join(tfDir, "s3-buckets.tf"))
			fmt.Fprintf(out, "3. Add the service entry to %s\n", cfg.Path)
			fmt.Fprintf(out, "4. Run: keysync update %s\n", answers.ID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for every value")
	cmd.Flags().StringVar(&opts.displayName, "display-name", "", "Display name (default: '<Service> S3 Backup')")
	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "S3 bucket name (default: '<service>-backup-home-ops')")
	cmd.Flags().StringVar(&opts.vault, "vault", "", "1Password vault (default: 'Automation')")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "Tags (default: 'aws,<service>,s3,backup')")
	cmd.Flags().StringVar(&opts.terraformDir, "terraform-dir", "", "Terraform directory shown in next steps")

	return cmd
}

func collectAnswers(cmd *cobra.Command, cfg *config.Config, args []string, opts generateOptions) (scaffold.Answers, error) {
	if opts.interactive {
		if cfg.NonInteractive {
			return scaffold.Answers{}, dserrors.UserError{
				Message:    "--interactive cannot be used with --non-interactive",
				Suggestion: "Pass the service name and flags instead, e.g. 'keysync generate redis --vault Automation'",
			}
		}
		cfg.Logger.Heading("Service Configuration Generator")
		return scaffold.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Collect(cmd.Context())
	}

	if len(args) == 0 {
		return scaffold.Answers{}, dserrors.UserError{
			Message:    "Service name is required",
			Suggestion: "Run 'keysync generate <service>' or 'keysync generate --interactive'",
		}
	}
	if err := scaffold.ValidateID(args[0]); err != nil {
		return scaffold.Answers{}, dserrors.UserError{Message: err.Error()}
	}

	answers := scaffold.DefaultAnswers(args[0])
	if opts.displayName != "" {
		answers.DisplayName = opts.displayName
	}
	if opts.bucket != "" {
		answers.BucketName = opts.bucket
	}
	if opts.vault != "" {
		answers.Vault = opts.vault
	}
	if len(opts.tags) > 0 {
		answers.Tags = opts.tags
	}
	return answers, nil
}
