package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/zalando/go-keyring"
)

const (
	serviceName    = "dobbie"
	accessTokenKey = "dobbie::access_token"
	authorURNKey   = "dobbie::author_urn"
)

// Credential holds the LinkedIn access token and the author URN it belongs
// to. Both fields are persisted together or not at all.
type Credential struct {
	AccessToken string `json:"access_token"`
	AuthorURN   string `json:"author_urn"`
}

// valid reports whether both halves are present.
func (c Credential) valid() bool {
	return c.AccessToken != "" && c.AuthorURN != ""
}

// Store handles credential storage, preferring the system keychain.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

// NewStore creates a credential store.
func NewStore(fallbackDir string) *Store {
	// Skip keyring for tests or when explicitly disabled
	if os.Getenv("DOBBIE_NO_KEYRING") != "" {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	// Test if keyring is available
	testKey := "dobbie::test"
	err := keyring.Set(serviceName, testKey, "test")
	if err == nil {
		_ = keyring.Delete(serviceName, testKey) // Best-effort cleanup
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n",
		filepath.Join(fallbackDir, "credentials.json"))
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// Load retrieves the stored credential. A missing or partial entry (either
// half absent) reports ok=false.
func (s *Store) Load() (Credential, bool) {
	var cred Credential
	if s.useKeyring {
		token, err1 := keyring.Get(serviceName, accessTokenKey)
		urn, err2 := keyring.Get(serviceName, authorURNKey)
		if err1 != nil || err2 != nil {
			return Credential{}, false
		}
		cred = Credential{AccessToken: token, AuthorURN: urn}
	} else {
		c, err := s.loadFromFile()
		if err != nil {
			return Credential{}, false
		}
		cred = c
	}
	if !cred.valid() {
		return Credential{}, false
	}
	return cred, true
}

// Save stores the credential, overwriting any existing entry. A credential
// with a missing half is rejected so partial state is never persisted.
func (s *Store) Save(cred Credential) error {
	if !cred.valid() {
		return fmt.Errorf("refusing to save partial credential")
	}
	if s.useKeyring {
		if err := keyring.Set(serviceName, accessTokenKey, cred.AccessToken); err != nil {
			return err
		}
		if err := keyring.Set(serviceName, authorURNKey, cred.AuthorURN); err != nil {
			// Roll back the first half so a partial pair is never left behind.
			_ = keyring.Delete(serviceName, accessTokenKey)
			return err
		}
		return nil
	}
	return s.saveToFile(cred)
}

// Clear removes the stored credential. Calling it when nothing is stored is
// a no-op.
func (s *Store) Clear() error {
	if s.useKeyring {
		err1 := keyring.Delete(serviceName, accessTokenKey)
		err2 := keyring.Delete(serviceName, authorURNKey)
		if err1 != nil && err1 != keyring.ErrNotFound {
			return err1
		}
		if err2 != nil && err2 != keyring.ErrNotFound {
			return err2
		}
		return nil
	}
	err := os.Remove(s.credentialsPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// UsingKeyring returns true if the store is using the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

// File fallback methods

func (s *Store) credentialsPath() string {
	return filepath.Join(s.fallbackDir, "credentials.json")
}

func (s *Store) loadFromFile() (Credential, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		return Credential{}, err
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("invalid credentials: %w", err)
	}
	return cred, nil
}

func (s *Store) saveToFile(cred Credential) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write with randomized temp file name
	tmpFile, err := os.CreateTemp(s.fallbackDir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	// Unix: rename atomically replaces the destination.
	// Windows: rename fails when destination exists. Try rename first to
	// preserve the old file on unrelated errors; only remove+retry on failure.
	destPath := s.credentialsPath()
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath) // Clean up stale temp on failure
		return err
	}
	return nil
}
