// Package cli assembles the root command and runs the CLI.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagarrai21802/Dobbie/internal/appctx"
	"github.com/sagarrai21802/Dobbie/internal/commands"
	"github.com/sagarrai21802/Dobbie/internal/config"
	"github.com/sagarrai21802/Dobbie/internal/output"
	"github.com/sagarrai21802/Dobbie/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "dobbie",
		Short:         "Generate and publish LinkedIn posts",
		Long:          "dobbie drafts LinkedIn posts with generative AI and publishes them to a connected LinkedIn account.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and version commands
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				ExchangeURL: flags.ExchangeURL,
				RedirectURI: flags.RedirectURI,
			})
			if err != nil {
				return err
			}

			app := appctx.NewApp(cfg)
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Print resolved configuration to stderr")
	cmd.PersistentFlags().StringVar(&flags.ExchangeURL, "exchange-url", "", "Token exchange backend URL")
	cmd.PersistentFlags().StringVar(&flags.RedirectURI, "redirect-uri", "", "OAuth redirect URI")

	return cmd
}

// Execute runs the root command.
func Execute() {
	cmd := NewRootCmd()

	cmd.AddCommand(commands.NewAuthCmd())
	cmd.AddCommand(commands.NewGenerateCmd())
	cmd.AddCommand(commands.NewPostCmd())
	cmd.AddCommand(commands.NewVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executedCmd, err := cmd.ExecuteContextC(ctx)
	if err != nil {
		apiErr := output.AsError(err)

		if app := appctx.FromContext(executedCmd.Context()); app != nil {
			_ = app.Err(err)
			os.Exit(apiErr.ExitCode())
		}

		// App not available, e.g. failure during setup.
		w := output.New(output.Options{Format: output.FormatText, Writer: os.Stderr})
		_ = w.Err(err)
		os.Exit(apiErr.ExitCode())
	}
}
