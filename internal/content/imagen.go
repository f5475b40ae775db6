package content

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sagarrai21802/Dobbie/internal/output"
	"github.com/sagarrai21802/Dobbie/internal/version"
)

const imagenModel = "imagen-4.0-generate-001"

const imageStyleWrapper = `Create a professional, modern, minimalist illustration for a LinkedIn post about: %s.
Style: Clean corporate design, soft gradients, abstract geometric shapes,
professional color palette with blues and whites, suitable for business social media.
No text or words in the image. High quality, polished, modern aesthetic.`

// imagePrompt wraps the post content in the house illustration style. Only
// the first 200 characters carry the theme; the rest adds nothing to the
// image and burns prompt budget.
func imagePrompt(content string) string {
	runes := []rune(content)
	if len(runes) > 200 {
		content = string(runes[:200])
	}
	return fmt.Sprintf(imageStyleWrapper, content)
}

// ImagenClient generates post images with the Imagen API.
type ImagenClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewImagenClient returns a client for the given API base URL and key.
func NewImagenClient(baseURL, apiKey string) *ImagenClient {
	return &ImagenClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
	} `json:"predictions"`
}

// GenerateImage asks Imagen for a single image matching prompt and returns
// the decoded bytes.
func (c *ImagenClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, output.ErrUsageHint("Gemini API key is not configured", "Set GEMINI_API_KEY in your environment.")
	}

	reqBody := imagenRequest{
		Instances:  []imagenInstance{{Prompt: imagePrompt(prompt)}},
		Parameters: imagenParameters{SampleCount: 1, AspectRatio: "1:1"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:predict?key=%s", c.baseURL, imagenModel, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, output.ErrAPI(resp.StatusCode, fmt.Sprintf("image generation failed (HTTP %d)", resp.StatusCode))
	}

	var parsed imagenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "image generation returned an unreadable response")
	}
	if len(parsed.Predictions) == 0 || parsed.Predictions[0].BytesBase64Encoded == "" {
		return nil, output.ErrAPI(resp.StatusCode, "image generation returned no predictions")
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "image generation returned undecodable image data")
	}
	return data, nil
}
