// Package settings stores pofill credentials per provider.
//
// The store lives in the XDG data directory:
//
//	$XDG_DATA_HOME/pofill/auth.json  (default: ~/.local/share/pofill/auth.json)
//
// It is a JSON object keyed by provider ID. File permissions are 0600.
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. POFILL_API_KEY environment variable
//  3. provider variable such as OPENAI_API_KEY
//  4. this credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	dataDirName = "pofill"
	fileName    = "auth.json"
)

// Info holds the stored credential of one provider.
type Info struct {
	// Key is the API key. Empty for keyless services that only store a URL.
	Key string `json:"key,omitempty"`
	// BaseURL overrides the provider endpoint (custom-openai, ollama).
	BaseURL string `json:"baseUrl,omitempty"`
	// Saved is when the entry was written.
	Saved time.Time `json:"saved,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// Providers returns the stored provider IDs, sorted.
func (s Store) Providers() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// DataDir returns the pofill data directory.
// Respects $XDG_DATA_HOME, falling back to ~/.local/share.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
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

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
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
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("securing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the entry for a provider, or nil if not found.
func Get(providerID string) *Info {
	return Load()[providerID]
}

// Set stores an API key and optional base URL for a provider (upsert).
func Set(providerID, key, baseURL string) error {
	store := Load()
	store[providerID] = &Info{Key: key, BaseURL: baseURL, Saved: time.Now().UTC()}
	return Save(store)
}

// APIKey returns the stored API key for a provider, or "".
func APIKey(providerID string) string {
	if info := Get(providerID); info != nil {
		return info.Key
	}
	return ""
}

// BaseURL returns the stored base URL for a provider, or "".
func BaseURL(providerID string) string {
	if info := Get(providerID); info != nil {
		return info.BaseURL
	}
	return ""
}

// Remove deletes the credentials of a provider.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll deletes the credential file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// ---------------------------------------------------------------------------
// Key resolution
// ---------------------------------------------------------------------------

// EnvAPIKey is the provider-independent API key variable.
const EnvAPIKey = "POFILL_API_KEY"

var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"groq":      "GROQ_API_KEY",
	"google":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// EnvVarForProvider returns the provider-specific API key variable, or "".
func EnvVarForProvider(providerID string) string {
	return providerEnvVars[providerID]
}

// ResolveAPIKey returns the API key for a provider and where it came from,
// following the lookup order documented on the package.
func ResolveAPIKey(providerID, flagValue string) (key, source string) {
	if flagValue != "" {
		return flagValue, "flag"
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v, EnvAPIKey
	}
	if name := EnvVarForProvider(providerID); name != "" {
		if v := os.Getenv(name); v != "" {
			return v, name
		}
	}
	if v := APIKey(providerID); v != "" {
		return v, "credential store"
	}
	return "", ""
}
