package auth

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Inbox holds an authorization code that arrived while no flow was waiting
// for it (the app was opened via the callback URL out-of-band). The code is
// stashed once and drained exactly once; draining always clears the file so
// a code can never be replayed.
type Inbox struct {
	dir string
}

// NewInbox creates an inbox under dir.
func NewInbox(dir string) *Inbox {
	return &Inbox{dir: dir}
}

func (i *Inbox) codePath() string {
	return filepath.Join(i.dir, "pending_code")
}

func (i *Inbox) lockPath() string {
	return filepath.Join(i.dir, "pending_code.lock")
}

// Stash stores a pending authorization code, replacing any previous one.
func (i *Inbox) Stash(code string) error {
	if err := os.MkdirAll(i.dir, 0700); err != nil {
		return err
	}

	lock := flock.New(i.lockPath())
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock() //nolint:errcheck

	return os.WriteFile(i.codePath(), []byte(code), 0600)
}

// Drain returns the pending code, if any, and removes it. The file is
// removed before the code is handed out, so a second Drain sees nothing.
func (i *Inbox) Drain() (string, bool) {
	lock := flock.New(i.lockPath())
	if err := lock.Lock(); err != nil {
		return "", false
	}
	defer lock.Unlock() //nolint:errcheck

	data, err := os.ReadFile(i.codePath())
	if err != nil {
		return "", false
	}
	_ = os.Remove(i.codePath())

	code := strings.TrimSpace(string(data))
	if code == "" {
		return "", false
	}
	return code, true
}
