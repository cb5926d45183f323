// Package provider connects the translator to chat completion services.
package provider

import (
	"fmt"
	"sort"
	"time"

	"github.com/minios-linux/pofill/translate"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderGoogle       = "google"
	ProviderAnthropic    = "anthropic"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
)

// DefaultModel is used when neither flags nor configuration name a model.
const DefaultModel = "gpt-4o-mini"

// Provider holds the configuration for a completion service.
type Provider struct {
	// ID is the provider identifier (openai, groq, ollama, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI",
			BaseURL: "https://api.openai.com/v1",
			Model:   DefaultModel,
			Timeout: 60 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
			Timeout: 60 * time.Second,
		},
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash",
			Timeout: 120 * time.Second,
		},
		ProviderAnthropic: {
			ID:      ProviderAnthropic,
			Name:    "Anthropic",
			BaseURL: "https://api.anthropic.com/v1",
			Model:   "claude-3-5-haiku-latest",
			Timeout: 120 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434",
			Model:   "llama3.1",
			Timeout: 300 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
	}
}

// IDs returns the known provider IDs, sorted.
func IDs() []string {
	ids := make([]string, 0, len(DefaultProviders()))
	for id := range DefaultProviders() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NeedsAPIKey reports whether requests to the provider must be authenticated.
func NeedsAPIKey(id string) bool {
	switch id {
	case ProviderOllama, ProviderCustomOpenAI:
		return false
	default:
		return true
	}
}

// Validate checks that p can be used to send requests.
func Validate(p Provider) error {
	if _, ok := DefaultProviders()[p.ID]; !ok {
		return fmt.Errorf("unknown provider %q (available: %v)", p.ID, IDs())
	}
	if p.Model == "" {
		return fmt.Errorf("provider %s requires a model", p.ID)
	}
	if p.BaseURL == "" {
		return fmt.Errorf("provider %s requires a base URL", p.ID)
	}
	if NeedsAPIKey(p.ID) && p.APIKey == "" {
		return fmt.Errorf("provider %s requires an API key", p.ID)
	}
	return nil
}

// New returns a Completer for p.
func New(p Provider) (translate.Completer, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	switch p.ID {
	case ProviderOpenAI:
		return newOpenAICompleter(p), nil
	case ProviderGoogle:
		return newHTTPCompleter(p, formatGeminiNative), nil
	case ProviderAnthropic:
		return newHTTPCompleter(p, formatAnthropic), nil
	case ProviderOllama:
		return newHTTPCompleter(p, formatOllama), nil
	default:
		return newHTTPCompleter(p, formatOpenAIChat), nil
	}
}
