package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarrai21802/Dobbie/internal/appctx"
	"github.com/sagarrai21802/Dobbie/internal/output"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	var imageOut string

	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Generate a post draft",
		Long: "Generate a LinkedIn post draft for the given topic.\n" +
			"With --image, also generate a matching image and write it to the given path.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			topic := strings.Join(args, " ")
			draft, err := app.Drafts.Generate(cmd.Context(), topic)
			if err != nil {
				return err
			}

			data := map[string]any{"topic": topic, "draft": draft}

			if imageOut != "" {
				img, err := app.Images.GenerateImage(cmd.Context(), topic)
				if err != nil {
					return err
				}
				if err := os.WriteFile(imageOut, img, 0o644); err != nil {
					return output.ErrUsage("cannot write image: " + err.Error())
				}
				data["image"] = imageOut
			}

			return app.OK(data, draft)
		},
	}

	cmd.Flags().StringVar(&imageOut, "image", "", "Also generate an image and write it to this path")

	return cmd
}
