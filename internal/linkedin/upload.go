package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Upload failure modes. All are terminal for the invocation; a retry starts
// over at registration.
var (
	ErrRegistrationFailed    = errors.New("upload registration failed")
	ErrInvalidUploadResponse = errors.New("invalid upload registration response")
	ErrBinaryUploadFailed    = errors.New("binary upload failed")
)

const (
	feedshareImageRecipe = "urn:li:digitalmediaRecipe:feedshare-image"
	uploadMechanismKey   = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
)

type registerUploadRequest struct {
	RegisterUploadRequest registerUploadBody `json:"registerUploadRequest"`
}

type registerUploadBody struct {
	Recipes              []string              `json:"recipes"`
	Owner                string                `json:"owner"`
	ServiceRelationships []serviceRelationship `json:"serviceRelationships"`
}

type serviceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type registerUploadResponse struct {
	Value struct {
		UploadMechanism map[string]struct {
			UploadURL string `json:"uploadUrl"`
		} `json:"uploadMechanism"`
		Asset string `json:"asset"`
	} `json:"value"`
}

// UploadImage runs the two-step media upload pipeline: register an upload
// slot owned by authorURN, then PUT the raw bytes to the returned URL. The
// steps are strictly ordered; the asset URN is returned only after both
// succeed. A failed binary upload discards the registered asset rather than
// reusing it.
func (c *Client) UploadImage(ctx context.Context, token, authorURN string, data []byte) (string, error) {
	uploadURL, asset, err := c.registerUpload(ctx, token, authorURN)
	if err != nil {
		return "", err
	}

	resp, err := c.putBinary(ctx, uploadURL, token, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBinaryUploadFailed, err)
	}
	drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: HTTP %d", ErrBinaryUploadFailed, resp.StatusCode)
	}

	return asset, nil
}

func (c *Client) registerUpload(ctx context.Context, token, authorURN string) (uploadURL, asset string, err error) {
	body := registerUploadRequest{
		RegisterUploadRequest: registerUploadBody{
			Recipes: []string{feedshareImageRecipe},
			Owner:   authorURN,
			ServiceRelationships: []serviceRelationship{{
				RelationshipType: "OWNER",
				Identifier:       "urn:li:userGeneratedContent",
			}},
		},
	}

	resp, err := c.postJSON(ctx, c.baseURL+"/v2/assets?action=registerUpload", token, body)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: HTTP %d", ErrRegistrationFailed, resp.StatusCode)
	}

	var reg registerUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidUploadResponse, err)
	}

	uploadURL = reg.Value.UploadMechanism[uploadMechanismKey].UploadURL
	asset = reg.Value.Asset
	if uploadURL == "" || asset == "" {
		return "", "", fmt.Errorf("%w: missing upload URL or asset", ErrInvalidUploadResponse)
	}

	return uploadURL, asset, nil
}
