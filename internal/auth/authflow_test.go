package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarrai21802/Dobbie/internal/config"
)

func newTestManager(t *testing.T, cfg *config.Config) *Manager {
	t.Helper()
	dir := t.TempDir()
	return &Manager{
		cfg:      cfg,
		store:    &Store{useKeyring: false, fallbackDir: dir},
		inbox:    NewInbox(dir),
		exchange: NewExchangeClient(cfg.ExchangeURL, nil),
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func newExchangeStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-xyz",
			"expires_in":   5184000,
			"member_id":    "m1",
			"member_urn":   "urn:li:person:m1",
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHandleCallbackStashesCode(t *testing.T) {
	m := newTestManager(t, config.Default())

	err := m.HandleCallback("dobbie://linkedin/callback?code=cb-code&state=s1")
	require.NoError(t, err)

	code, ok := m.inbox.Drain()
	require.True(t, ok, "Code should be stashed in the inbox")
	assert.Equal(t, "cb-code", code)
}

func TestHandleCallbackErrorParam(t *testing.T) {
	m := newTestManager(t, config.Default())

	err := m.HandleCallback("dobbie://linkedin/callback?error=user_cancelled_login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_cancelled_login")

	_, ok := m.inbox.Drain()
	assert.False(t, ok, "Nothing should be stashed on error callbacks")
}

func TestHandleCallbackMissingCode(t *testing.T) {
	m := newTestManager(t, config.Default())

	err := m.HandleCallback("dobbie://linkedin/callback?state=s1")
	require.Error(t, err)

	_, ok := m.inbox.Drain()
	assert.False(t, ok)
}

func TestConnectResumesFromInbox(t *testing.T) {
	stub := newExchangeStub(t)

	cfg := config.Default()
	cfg.ExchangeURL = stub.URL
	m := newTestManager(t, cfg)

	// A previously stashed code is exchanged without opening a session.
	require.NoError(t, m.inbox.Stash("pending-code"))
	require.NoError(t, m.Connect(context.Background(), ConnectOptions{NoBrowser: true}))

	cred, ok := m.Credential()
	require.True(t, ok, "Credential should be persisted after resume")
	assert.Equal(t, "tok-xyz", cred.AccessToken)
	assert.Equal(t, "urn:li:person:m1", cred.AuthorURN)

	_, ok = m.inbox.Drain()
	assert.False(t, ok, "Inbox should be empty after resume")
}

func TestConnectRequiresClientID(t *testing.T) {
	cfg := config.Default()
	cfg.ClientID = ""
	m := newTestManager(t, cfg)

	err := m.Connect(context.Background(), ConnectOptions{NoBrowser: true})
	require.Error(t, err, "Connect without a client ID should fail")
}

// runConnect starts Connect with NoBrowser and extracts the state parameter
// from the logged authorization URL.
func runConnect(t *testing.T, m *Manager) (state string, done <-chan error) {
	t.Helper()

	var mu sync.Mutex
	var authURL string
	stateCh := make(chan string, 1)
	urlRe := regexp.MustCompile(`https://[^\s]+`)

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Connect(context.Background(), ConnectOptions{
			NoBrowser: true,
			Logger: func(msg string) {
				mu.Lock()
				defer mu.Unlock()
				if authURL != "" {
					return
				}
				if match := urlRe.FindString(msg); match != "" {
					authURL = match
					u, err := url.Parse(match)
					require.NoError(t, err)
					stateCh <- u.Query().Get("state")
				}
			},
		})
	}()

	select {
	case s := <-stateCh:
		return s, errCh
	case err := <-errCh:
		t.Fatalf("Connect returned before logging the auth URL: %v", err)
		return "", nil
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for auth URL")
		return "", nil
	}
}

func TestConnectRejectsStateMismatch(t *testing.T) {
	stub := newExchangeStub(t)
	port := freePort(t)

	cfg := config.Default()
	cfg.ClientID = "client-1"
	cfg.ExchangeURL = stub.URL
	cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	m := newTestManager(t, cfg)

	_, done := runConnect(t, m)

	// Deliver a callback carrying the wrong state.
	callbackURL := fmt.Sprintf("%s?code=evil&state=forged", cfg.RedirectURI)
	resp := getEventually(t, callbackURL)
	resp.Body.Close()

	select {
	case err := <-done:
		require.Error(t, err, "Forged state must abort the flow")
		assert.Contains(t, strings.ToLower(err.Error()), "state mismatch")
	case <-time.After(5 * time.Second):
		t.Fatal("Connect did not return after forged callback")
	}

	_, ok := m.Credential()
	assert.False(t, ok, "No credential may be saved on a forged callback")
}

func TestConnectFullFlow(t *testing.T) {
	stub := newExchangeStub(t)
	port := freePort(t)

	cfg := config.Default()
	cfg.ClientID = "client-1"
	cfg.ExchangeURL = stub.URL
	cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	m := newTestManager(t, cfg)

	state, done := runConnect(t, m)
	require.NotEmpty(t, state, "Auth URL should carry a state parameter")

	callbackURL := fmt.Sprintf("%s?code=good-code&state=%s", cfg.RedirectURI, url.QueryEscape(state))
	resp := getEventually(t, callbackURL)
	resp.Body.Close()

	select {
	case err := <-done:
		require.NoError(t, err, "Connect should succeed with matching state")
	case <-time.After(5 * time.Second):
		t.Fatal("Connect did not return after callback")
	}

	cred, ok := m.Credential()
	require.True(t, ok)
	assert.Equal(t, "tok-xyz", cred.AccessToken)
	assert.Equal(t, "urn:li:person:m1", cred.AuthorURN)
}

// getEventually retries the GET until the loopback listener is up.
func getEventually(t *testing.T, url string) *http.Response {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("callback server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
