package exchange

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, oauthURL, apiURL string) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ClientID = "client-1"
	cfg.ClientSecret = "secret-1"
	cfg.RedirectURI = "http://127.0.0.1:8917/callback"
	cfg.OAuthBaseURL = oauthURL
	cfg.APIBaseURL = apiURL
	cfg.CodeTTL = time.Minute
	return cfg
}

func newLinkedInStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v2/accessToken":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
			assert.Equal(t, "client-1", r.FormValue("client_id"))
			assert.Equal(t, "secret-1", r.FormValue("client_secret"))
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "li-token",
				"expires_in":   5184000,
			})
		case "/v2/userinfo":
			assert.Equal(t, "Bearer li-token", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]string{"sub": "abc123"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	stub := newLinkedInStub(t)
	cfg := testConfig(t, stub.URL, stub.URL)
	return NewServer(cfg, NewService(cfg), zerolog.Nop())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestCallbackRedirect(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/linkedin?code=abc&state=s1", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "dobbie://linkedin/callback?"), "Location: %s", loc)
	assert.Contains(t, loc, "code=abc")
	assert.Contains(t, loc, "state=s1")
}

func TestCallbackRedirectForwardsError(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/linkedin?error=user_cancelled_login", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=user_cancelled_login")
}

func doExchange(srv *Server, code string) *httptest.ResponseRecorder {
	payload := `{"code":"` + code + `"}`
	req := httptest.NewRequest(http.MethodPost, "/linkedin/exchange", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestExchangeSuccess(t *testing.T) {
	srv := newTestServer(t)

	rec := doExchange(srv, "good-code")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result TokenResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "li-token", result.AccessToken)
	assert.Equal(t, "abc123", result.MemberID)
	assert.Equal(t, "urn:li:person:abc123", result.MemberURN)
	assert.Equal(t, 5184000, result.ExpiresIn)
}

func TestExchangeMissingCode(t *testing.T) {
	srv := newTestServer(t)

	rec := doExchange(srv, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExchangeReplayRejected(t *testing.T) {
	srv := newTestServer(t)

	first := doExchange(srv, "one-time-code")
	require.Equal(t, http.StatusOK, first.Code)

	// The same code a second time is refused without contacting LinkedIn.
	second := doExchange(srv, "one-time-code")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "already used")
}

func TestExchangeUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer upstream.Close()

	cfg := testConfig(t, upstream.URL, upstream.URL)
	srv := NewServer(cfg, NewService(cfg), zerolog.Nop())

	rec := doExchange(srv, "rejected-code")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exchange_failed")
}

func TestExchangeTransientFailureLeavesCodeRetryable(t *testing.T) {
	var tokenCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v2/accessToken":
			if tokenCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "li-token", "expires_in": 5184000})
		case "/v2/userinfo":
			json.NewEncoder(w).Encode(map[string]string{"sub": "abc123"})
		}
	}))
	defer upstream.Close()

	cfg := testConfig(t, upstream.URL, upstream.URL)
	srv := NewServer(cfg, NewService(cfg), zerolog.Nop())

	first := doExchange(srv, "flaky-code")
	require.Equal(t, http.StatusBadRequest, first.Code)

	// LinkedIn never consumed the code, so a retry must reach it again.
	second := doExchange(srv, "flaky-code")
	assert.Equal(t, http.StatusOK, second.Code, second.Body.String())
	assert.Equal(t, int32(2), tokenCalls.Load())
}

func TestExchangeDefinitiveRejectionBurnsCode(t *testing.T) {
	var tokenCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer upstream.Close()

	cfg := testConfig(t, upstream.URL, upstream.URL)
	srv := NewServer(cfg, NewService(cfg), zerolog.Nop())

	first := doExchange(srv, "dead-code")
	require.Equal(t, http.StatusBadRequest, first.Code)

	// LinkedIn rejected the code outright; retries are refused locally.
	second := doExchange(srv, "dead-code")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, int32(1), tokenCalls.Load(), "A definitively rejected code must not reach LinkedIn again")
}

func TestCallbackRedirectMissingCode(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/linkedin", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doExchange(srv, "metrics-code")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dobbie_exchange_requests_total")
}
