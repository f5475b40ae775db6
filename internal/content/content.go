// Package content generates post drafts and accompanying images through
// Google's generative APIs.
package content

import "context"

// Generator produces post text from a topic prompt.
type Generator interface {
	Generate(ctx context.Context, topic string) (string, error)
}

// ImageGenerator produces raw image bytes from a visual prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
