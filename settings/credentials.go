// Package settings stores clokit user settings: per-engine API credentials
// and the default location of the translation memory.
//
// Everything lives in the XDG data directory:
//
//	$XDG_DATA_HOME/clokit/  (default: ~/.local/share/clokit/)
//
// Files stored:
//   - auth.json — API keys per engine, 0600
//   - tm.db     — translation memory (bbolt), created on first use
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. CLOKIT_API_KEY environment variable
//  3. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "clokit"
	authFile    = "auth.json"
	memoryFile  = "tm.db"
)

// EnvAPIKey overrides the stored key for whichever engine is selected.
const EnvAPIKey = "CLOKIT_API_KEY"

// Credential is one engine's stored credential.
type Credential struct {
	Key string `json:"key"`
	// BaseURL points OpenAI-compatible engines at a custom server.
	BaseURL string `json:"baseUrl,omitempty"`
	// Model overrides the engine's default model, where applicable.
	Model string `json:"model,omitempty"`
}

// Store holds all engine credentials, keyed by engine name.
type Store map[string]*Credential

// ---------------------------------------------------------------------------
// File paths
// ---------------------------------------------------------------------------

// dataDir returns the XDG data directory for clokit, respecting
// $XDG_DATA_HOME and falling back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func authPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, authFile), nil
}

// FilePath returns the auth.json path for display purposes.
func FilePath() string {
	p, err := authPath()
	if err != nil {
		return ""
	}
	return p
}

// MemoryPath returns the default translation memory path, creating the data
// directory on the way.
func MemoryPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return filepath.Join(dir, memoryFile), nil
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store. A missing or unreadable file yields an
// empty store.
func Load() Store {
	path, err := authPath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store with 0600 permissions.
func Save(store Store) error {
	path, err := authPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the credential for an engine, or nil.
func Get(engine string) *Credential {
	return Load()[engine]
}

// Set stores a credential for an engine (upsert).
func Set(engine string, cred *Credential) error {
	store := Load()
	store[engine] = cred
	return Save(store)
}

// Remove deletes an engine's credential.
func Remove(engine string) error {
	store := Load()
	if _, ok := store[engine]; !ok {
		return nil
	}
	delete(store, engine)
	return Save(store)
}

// RemoveAll deletes the whole auth file.
func RemoveAll() error {
	path, err := authPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolution and display
// ---------------------------------------------------------------------------

// ResolveAPIKey picks the effective API key for an engine: the explicit flag
// value wins, then CLOKIT_API_KEY, then the stored credential.
func ResolveAPIKey(flagValue, engine string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvAPIKey); env != "" {
		return env
	}
	if cred := Get(engine); cred != nil {
		return cred.Key
	}
	return ""
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
