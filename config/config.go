// Package config loads pofill settings from .pofill.yaml, .env and the
// environment.
//
// Values are layered: built-in defaults, then the config file, then
// POFILL_* environment variables. Command-line flags are applied last by
// the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/pofill/provider"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the .pofill.yaml structure.
type Config struct {
	// Languages are the target language codes.
	Languages []string `yaml:"languages,omitempty"`
	// Folders are the directory trees scanned for catalogs.
	Folders []string `yaml:"folders,omitempty"`

	// Provider is the completion service ID (default "openai").
	Provider string `yaml:"provider,omitempty"`
	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the provider's API base URL.
	BaseURL string `yaml:"base_url,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// Timeout is the per-request timeout, e.g. "90s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	FolderLanguage bool `yaml:"folder_language,omitempty"`
	RefreshAll     bool `yaml:"refresh_all,omitempty"`
	FixNewlines    bool `yaml:"fix_newlines,omitempty"`
	FixBraces      bool `yaml:"fix_braces,omitempty"`
	// Fuzzy strips fuzzy flags before translating.
	Fuzzy        bool `yaml:"fuzzy,omitempty"`
	AcceptFailed bool `yaml:"accept_failed,omitempty"`
}

// FileName is the default config file name.
const FileName = ".pofill.yaml"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{Provider: provider.ProviderOpenAI}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the config file at path on top of the defaults. A missing
// file is an error only when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Provider == "" {
		cfg.Provider = provider.ProviderOpenAI
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks provider, language codes and timeout.
func (c *Config) Validate() error {
	if !lo.Contains(provider.IDs(), c.Provider) {
		return fmt.Errorf("unknown provider %q (valid: %v)", c.Provider, provider.IDs())
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	langs, err := ParseLanguages(c.Languages...)
	if err != nil {
		return err
	}
	c.Languages = langs
	c.Folders = lo.Uniq(c.Folders)
	return nil
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// Environment variables read by ApplyEnv and the credential lookup.
const (
	EnvProvider = "POFILL_PROVIDER"
	EnvModel    = "POFILL_MODEL"
	EnvBaseURL  = "POFILL_BASE_URL"
	EnvAPIKey   = "POFILL_API_KEY"
)

// LoadDotEnv loads variables from a .env file without overriding the ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides provider, model and base URL from POFILL_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvProvider); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if !lo.Contains(provider.IDs(), c.Provider) {
		return fmt.Errorf("%s: unknown provider %q", EnvProvider, c.Provider)
	}
	return nil
}
