// Package auth implements the LinkedIn OAuth authorization-code flow:
// the interactive consent session, the code exchange through the trusted
// backend, and keychain-backed credential persistence.
package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sagarrai21802/Dobbie/internal/config"
	"github.com/sagarrai21802/Dobbie/internal/output"
)

// Manager drives authentication: the interactive authorization flow, the
// out-of-band code inbox, and the credential store.
type Manager struct {
	cfg        *config.Config
	store      *Store
	inbox      *Inbox
	exchange   *ExchangeClient
	httpClient *http.Client

	mu      sync.Mutex
	session *callbackSession
}

// NewManager creates a new auth manager.
func NewManager(cfg *config.Config, httpClient *http.Client) *Manager {
	dir := config.GlobalConfigDir()
	return &Manager{
		cfg:        cfg,
		store:      NewStore(dir),
		inbox:      NewInbox(dir),
		exchange:   NewExchangeClient(config.NormalizeBaseURL(cfg.ExchangeURL), httpClient),
		httpClient: httpClient,
	}
}

// ConnectOptions configures the connect flow.
type ConnectOptions struct {
	NoBrowser bool // If true, don't auto-open browser, just print URL
	Logger    func(msg string)
}

func (o ConnectOptions) log(msg string) {
	if o.Logger != nil {
		o.Logger(msg)
	}
}

// Connect runs the authorization-code flow and persists the resulting
// credential. A code stashed by an earlier out-of-band callback is drained
// and exchanged first, without opening a new consent session.
func (m *Manager) Connect(ctx context.Context, opts ConnectOptions) error {
	if code, ok := m.inbox.Drain(); ok {
		opts.log("Resuming with pending authorization code...")
		return m.completeExchange(ctx, code)
	}

	if m.cfg.ClientID == "" {
		return output.ErrUsageHint("No LinkedIn client ID configured",
			"Set DOBBIE_CLIENT_ID or client_id in "+config.GlobalConfigDir()+"/config.json")
	}

	state := uuid.NewString()
	authURL := m.authCodeURL(state)

	code, err := m.waitForCallback(ctx, state, authURL, opts)
	if err != nil {
		return err
	}

	return m.completeExchange(ctx, code)
}

// IsAuthenticated checks if a complete credential is stored.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.store.Load()
	return ok
}

// Credential returns the stored credential, if any.
func (m *Manager) Credential() (Credential, bool) {
	return m.store.Load()
}

// Disconnect removes stored credentials.
func (m *Manager) Disconnect() error {
	return m.store.Clear()
}

// Store returns the credential store.
func (m *Manager) Store() *Store {
	return m.store
}

// HandleCallback processes a callback URL delivered out-of-band (the OS
// opened the app via the private URL scheme while no flow was waiting).
// The code is stashed in the inbox and exchanged by the next Connect.
func (m *Manager) HandleCallback(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return output.ErrUsage("invalid callback URL")
	}

	q := u.Query()
	if errParam := q.Get("error"); errParam != "" {
		return output.ErrAuth("authorization failed: " + errParam)
	}
	code := q.Get("code")
	if code == "" {
		return output.ErrAuth("no authorization code in callback URL")
	}

	return m.inbox.Stash(code)
}

func (m *Manager) authCodeURL(state string) string {
	oc := &oauth2.Config{
		ClientID:    m.cfg.ClientID,
		RedirectURL: m.cfg.RedirectURI,
		Scopes:      strings.Fields(m.cfg.Scope),
		Endpoint:    oauth2.Endpoint{AuthURL: m.cfg.AuthURL},
	}
	return oc.AuthCodeURL(state)
}

func (m *Manager) completeExchange(ctx context.Context, code string) error {
	result, err := m.exchange.Exchange(ctx, code, m.cfg.RedirectURI)
	if err != nil {
		return err
	}
	return m.store.Save(Credential{
		AccessToken: result.AccessToken,
		AuthorURN:   result.MemberURN,
	})
}

// callbackSession is one interactive consent session: a loopback listener
// waiting for the browser redirect. At most one may be open.
type callbackSession struct {
	listener net.Listener
	server   *http.Server
}

func (s *callbackSession) Close() {
	_ = s.server.Close()
	_ = s.listener.Close()
}

func (m *Manager) waitForCallback(ctx context.Context, expectedState, authURL string, opts ConnectOptions) (string, error) {
	redirect, err := url.Parse(m.cfg.RedirectURI)
	if err != nil {
		return "", output.ErrUsage("invalid redirect URI: " + m.cfg.RedirectURI)
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server: %w", err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := r.URL.Query().Get("state")
			code := r.URL.Query().Get("code")
			errParam := r.URL.Query().Get("error")

			if errParam != "" {
				errCh <- output.ErrAuth("authorization failed: " + errParam)
				fmt.Fprint(w, "<html><body><h1>Authorization failed</h1><p>You can close this window.</p></body></html>")
				return
			}

			if code == "" {
				errCh <- output.ErrAuth("no authorization code in callback")
				fmt.Fprint(w, "<html><body><h1>Authorization failed</h1><p>No code received.</p></body></html>")
				return
			}

			if state != expectedState {
				errCh <- output.ErrAuth("state mismatch: CSRF protection failed")
				fmt.Fprint(w, "<html><body><h1>Authorization failed</h1><p>State mismatch.</p></body></html>")
				return
			}

			codeCh <- code
			fmt.Fprint(w, "<html><body><h1>Connected to LinkedIn!</h1><p>You can close this window.</p></body></html>")
		}),
	}

	session := &callbackSession{listener: listener, server: server}

	// Exactly one session may be active; tear down any pending one first.
	m.mu.Lock()
	if m.session != nil {
		m.session.Close()
	}
	m.session = session
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.session == session {
			m.session = nil
		}
		m.mu.Unlock()
		session.Close()
	}()

	go server.Serve(listener) //nolint:errcheck

	if !opts.NoBrowser {
		if err := openBrowser(authURL); err != nil {
			opts.log(fmt.Sprintf("\nCouldn't open browser automatically.\nOpen this URL in your browser:\n%s\n\nWaiting for authorization...", authURL))
		} else {
			opts.log("\nOpening browser for LinkedIn authorization...")
			opts.log(fmt.Sprintf("If the browser doesn't open, visit: %s\n\nWaiting for authorization...", authURL))
		}
	} else {
		opts.log(fmt.Sprintf("\nOpen this URL in your browser:\n%s\n\nWaiting for authorization...", authURL))
	}

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(5 * time.Minute):
		return "", output.ErrAuth("authorization timeout")
	}
}

// openBrowser opens the specified URL in the default browser.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return exec.Command(cmd, args...).Start() //nolint:gosec,noctx // G204: cmd is hardcoded per-platform; fire-and-forget
}
