package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sagarrai21802/Dobbie/internal/version"
)

// TokenResult is what the CLI receives back from a successful exchange.
type TokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	MemberID     string `json:"member_id"`
	MemberURN    string `json:"member_urn"`
}

// Service performs the authorization code exchange against LinkedIn and
// resolves the member identity behind the token.
type Service struct {
	cfg        Config
	httpClient *http.Client
}

// NewService creates a service for cfg.
func NewService(cfg Config) *Service {
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// upstreamError reports whether LinkedIn definitively rejected or consumed
// the authorization code. Transient failures (transport errors, 5xx) leave
// the code reusable; definitive ones do not.
type upstreamError struct {
	definitive bool
	msg        string
}

func (e *upstreamError) Error() string {
	return e.msg
}

type userinfoResponse struct {
	Sub string `json:"sub"`
}

// Exchange swaps code for an access token and resolves the member URN.
// redirectURI must match the one used in the authorization request; when
// empty the configured default is used.
func (s *Service) Exchange(ctx context.Context, code, redirectURI string) (TokenResult, error) {
	if redirectURI == "" {
		redirectURI = s.cfg.RedirectURI
	}

	tok, err := s.accessToken(ctx, code, redirectURI)
	if err != nil {
		return TokenResult{}, err
	}

	sub, err := s.memberSub(ctx, tok.AccessToken)
	if err != nil {
		// The token call already consumed the code; a retry with the same
		// code cannot succeed.
		return TokenResult{}, &upstreamError{definitive: true, msg: err.Error()}
	}

	return TokenResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
		MemberID:     sub,
		MemberURN:    "urn:li:person:" + sub,
	}, nil
}

func (s *Service) accessToken(ctx context.Context, code, redirectURI string) (tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("redirect_uri", redirectURI)

	endpoint := strings.TrimRight(s.cfg.OAuthBaseURL, "/") + "/oauth/v2/accessToken"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tokenResponse{}, &upstreamError{
			definitive: resp.StatusCode >= 400 && resp.StatusCode < 500,
			msg:        fmt.Sprintf("token request failed (HTTP %d)", resp.StatusCode),
		}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return tokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("token response missing access_token")
	}
	return tok, nil
}

func (s *Service) memberSub(ctx context.Context, accessToken string) (string, error) {
	endpoint := strings.TrimRight(s.cfg.APIBaseURL, "/") + "/v2/userinfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo request failed (HTTP %d)", resp.StatusCode)
	}

	var info userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo response: %w", err)
	}
	if info.Sub == "" {
		return "", fmt.Errorf("userinfo response missing sub")
	}
	return info.Sub, nil
}
