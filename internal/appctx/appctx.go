// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"os"

	"github.com/sagarrai21802/Dobbie/internal/auth"
	"github.com/sagarrai21802/Dobbie/internal/config"
	"github.com/sagarrai21802/Dobbie/internal/content"
	"github.com/sagarrai21802/Dobbie/internal/linkedin"
	"github.com/sagarrai21802/Dobbie/internal/output"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config    *config.Config
	Auth      *auth.Manager
	LinkedIn  *linkedin.Client
	Publisher *linkedin.Publisher
	Drafts    content.Generator
	Images    content.ImageGenerator
	Output    *output.Writer

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	Verbose bool

	ExchangeURL string
	RedirectURI string
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	authMgr := auth.NewManager(cfg, nil)
	client := linkedin.NewClient(cfg.APIBaseURL, nil)

	return &App{
		Config:    cfg,
		Auth:      authMgr,
		LinkedIn:  client,
		Publisher: linkedin.NewPublisher(client, authMgr.Store()),
		Drafts:    content.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey),
		Images:    content.NewImagenClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey),
		Output: output.New(output.Options{
			Format: output.FormatText,
			Writer: os.Stdout,
		}),
	}
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	if a.Flags.Verbose {
		fmt.Fprintf(os.Stderr, "config: exchange_url=%s redirect_uri=%s api_base_url=%s\n",
			a.Config.ExchangeURL, a.Config.RedirectURI, a.Config.APIBaseURL)
		for key, source := range a.Config.Sources {
			fmt.Fprintf(os.Stderr, "config: %s from %s\n", key, source)
		}
	}
	if a.Flags.Quiet {
		a.Output = output.New(output.Options{
			Format: output.FormatQuiet,
			Writer: os.Stdout,
		})
	} else if a.Flags.JSON {
		a.Output = output.New(output.Options{
			Format: output.FormatJSON,
			Writer: os.Stdout,
		})
	}
}

// OK outputs a success response.
func (a *App) OK(data any, summary string) error {
	return a.Output.OK(data, summary)
}

// Err outputs an error response.
func (a *App) Err(err error) error {
	return a.Output.Err(err)
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context, or nil.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
