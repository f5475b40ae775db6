package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sagarrai21802/Dobbie/internal/output"
)

// ExchangeResult is the backend intermediary's response to a code exchange.
// Consumed once to populate a Credential; not retained beyond that.
type ExchangeResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	MemberID     string `json:"member_id"`
	MemberURN    string `json:"member_urn"`
}

// ExchangeClient exchanges an authorization code for an access token via the
// trusted backend intermediary. The client never holds the OAuth client
// secret and never calls LinkedIn's token endpoint directly.
type ExchangeClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewExchangeClient creates an exchange client against the given backend.
func NewExchangeClient(baseURL string, httpClient *http.Client) *ExchangeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ExchangeClient{baseURL: baseURL, httpClient: httpClient}
}

// Exchange sends the code and redirect URI to the backend and decodes the
// result. One attempt per invocation; the credential store is untouched on
// failure (persisting is the caller's job).
func (c *ExchangeClient) Exchange(ctx context.Context, code, redirectURI string) (*ExchangeResult, error) {
	body, err := json.Marshal(map[string]string{
		"code":         code,
		"redirect_uri": redirectURI,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/linkedin/exchange", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, output.ErrExchange(fmt.Sprintf("token exchange failed (HTTP %d)", resp.StatusCode), nil)
	}

	var result ExchangeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, output.ErrExchange("could not decode token response", err)
	}
	if result.AccessToken == "" || result.MemberURN == "" {
		return nil, output.ErrExchange("token response missing access_token or member_urn", nil)
	}

	return &result, nil
}
