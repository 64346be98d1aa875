package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/systmms/keysync/cmd/keysync/commands"
	"github.com/systmms/keysync/internal/config"
	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	os.Exit(dserrors.ExitCode(err))
}

func run(ctx context.Context) error {
	var (
		configFile     string
		envFile        string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "keysync",
		Short: "Rotate AWS IAM keys from Terraform into 1Password",
		Long: `keysync reads freshly rotated AWS access keys from Terraform outputs and
creates or updates the matching 1Password item, one service at a time.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.EnvFile = envFile
			cfg.Logger = logging.New(debug, noColor)
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Env file holding OP_ACCOUNT")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")

	rootCmd.AddCommand(
		commands.NewUpdateCommand(cfg),
		commands.NewServicesCommand(cfg),
		commands.NewGenerateCommand(cfg),
		commands.NewVerifyCommand(cfg),
	)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !commands.IsReported(err) {
		logger := cfg.Logger
		if logger == nil {
			logger = logging.New(false, noColor)
		}
		logger.Error("%v", dserrors.SimplifyError(err))
	}
	return err
}
