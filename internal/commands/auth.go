// Package commands implements the CLI commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagarrai21802/Dobbie/internal/appctx"
	"github.com/sagarrai21802/Dobbie/internal/auth"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage LinkedIn authentication",
		Long:  "Manage LinkedIn authentication including connect, disconnect, and status.",
	}

	cmd.AddCommand(
		newAuthConnectCmd(),
		newAuthDisconnectCmd(),
		newAuthStatusCmd(),
		newAuthCallbackCmd(),
	)

	return cmd
}

func newAuthConnectCmd() *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Authenticate with LinkedIn",
		Long:  "Start the OAuth flow to connect a LinkedIn account.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			fmt.Println("Starting LinkedIn authentication...")

			if err := app.Auth.Connect(cmd.Context(), auth.ConnectOptions{
				NoBrowser: noBrowser,
				Logger:    func(msg string) { fmt.Println(msg) },
			}); err != nil {
				return err
			}

			cred, _ := app.Auth.Credential()
			return app.OK(map[string]any{
				"connected":  true,
				"author_urn": cred.AuthorURN,
			}, fmt.Sprintf("Connected as %s", cred.AuthorURN))
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically")

	return cmd
}

func newAuthDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Remove stored credentials",
		Long:  "Remove the stored LinkedIn access token and author identity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			if err := app.Auth.Disconnect(); err != nil {
				return err
			}

			return app.OK(map[string]string{
				"status": "disconnected",
			}, "Disconnected from LinkedIn")
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display whether a LinkedIn account is connected and as whom.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			cred, ok := app.Auth.Credential()
			if !ok {
				return app.OK(map[string]any{
					"connected": false,
				}, "Not connected")
			}

			return app.OK(map[string]any{
				"connected":  true,
				"author_urn": cred.AuthorURN,
			}, fmt.Sprintf("Connected as %s", cred.AuthorURN))
		},
	}
}

func newAuthCallbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "callback <url>",
		Short: "Handle an OAuth callback URL",
		Long: "Process a callback URL delivered outside a running connect flow.\n" +
			"The authorization code is stashed and picked up by the next 'auth connect'.",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			if err := app.Auth.HandleCallback(args[0]); err != nil {
				return err
			}

			return app.OK(map[string]string{
				"status": "code_stashed",
			}, "Authorization code received. Run 'dobbie auth connect' to finish.")
		},
	}
}
