package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarrai21802/Dobbie/internal/appctx"
	"github.com/sagarrai21802/Dobbie/internal/linkedin"
	"github.com/sagarrai21802/Dobbie/internal/output"
)

// NewPostCmd creates the post command.
func NewPostCmd() *cobra.Command {
	var imagePath string
	var generate bool

	cmd := &cobra.Command{
		Use:   "post <text|topic>",
		Short: "Publish a post to LinkedIn",
		Long: "Publish the given text to LinkedIn, optionally with an image attached.\n" +
			"With --generate, the argument is treated as a topic and a draft is\n" +
			"generated first.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			if !app.Auth.IsAuthenticated() {
				return output.ErrAuth("Not connected to LinkedIn")
			}

			text := strings.Join(args, " ")
			if generate {
				draft, err := app.Drafts.Generate(cmd.Context(), text)
				if err != nil {
					return err
				}
				text = draft
			}
			if strings.TrimSpace(text) == "" {
				return output.ErrUsage("post text is empty")
			}

			var image []byte
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return output.ErrUsage("cannot read image: " + err.Error())
				}
				image = data
			}

			if !app.Publisher.Publish(cmd.Context(), text, image) {
				return &output.Error{
					Code:    output.CodePublish,
					Message: "another publish is already in progress",
				}
			}

			status := app.Publisher.Status()
			switch status.Kind {
			case linkedin.StatusSuccess:
				return app.OK(map[string]any{
					"posted":     true,
					"with_image": len(image) > 0,
				}, "Posted to LinkedIn")
			case linkedin.StatusError:
				return &output.Error{
					Code:    output.CodePublish,
					Message: status.Message,
				}
			default:
				return &output.Error{
					Code:    output.CodePublish,
					Message: fmt.Sprintf("unexpected publish status: %s", status.Kind),
				}
			}
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Path of an image to attach")
	cmd.Flags().BoolVar(&generate, "generate", false, "Treat the argument as a topic and generate the post text")

	return cmd
}
