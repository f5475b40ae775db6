// Package linkedin implements the LinkedIn publishing surface: the media
// upload pipeline and the UGC post publisher.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sagarrai21802/Dobbie/internal/version"
)

// LinkedIn's versioned protocol header, required on every API call.
const restliProtocolVersion = "2.0.0"

// Client is an HTTP client for the LinkedIn API. Every step is a single
// attempt: failures are reported to the caller, never retried here.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// postJSON sends an authenticated JSON POST and returns the response. The
// caller owns the response body.
func (c *Client) postJSON(ctx context.Context, url, token string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", restliProtocolVersion)
	req.Header.Set("User-Agent", version.UserAgent())

	return c.httpClient.Do(req)
}

// putBinary PUTs raw bytes to an absolute URL with an octet-stream content
// type. Used for the second leg of the media upload pipeline.
func (c *Client) putBinary(ctx context.Context, url, token string, data []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", version.UserAgent())

	return c.httpClient.Do(req)
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
