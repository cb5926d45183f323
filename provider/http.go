package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// API formats
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI-compatible chat/completions
	formatGeminiNative                  // Google Gemini generateContent
	formatAnthropic                     // Anthropic messages
	formatOllama                        // Ollama /api/chat
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

func buildOpenAIChatRequest(model, prompt string, jsonMode bool) ([]byte, error) {
	req := struct {
		Model          string          `json:"model"`
		Messages       []chatMessage   `json:"messages"`
		Stream         bool            `json:"stream"`
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
	}{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return json.Marshal(req)
}

func buildGeminiRequest(prompt string) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
	}
	req := struct {
		Contents         []content `json:"contents"`
		GenerationConfig genConfig `json:"generationConfig"`
	}{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: genConfig{ResponseMimeType: "application/json"},
	}
	return json.Marshal(req)
}

func buildAnthropicRequest(model, prompt string) ([]byte, error) {
	req := struct {
		Model     string        `json:"model"`
		MaxTokens int           `json:"max_tokens"`
		Messages  []chatMessage `json:"messages"`
	}{
		Model:     model,
		MaxTokens: 4096,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	return json.Marshal(req)
}

func buildOllamaRequest(model, prompt string) ([]byte, error) {
	req := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
		Format   string        `json:"format"`
	}{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Format:   "json",
	}
	return json.Marshal(req)
}

// buildHTTPRequest constructs the endpoint, headers, and body for a prompt.
func buildHTTPRequest(prov Provider, prompt string, format apiFormat) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	base := strings.TrimRight(prov.BaseURL, "/")

	var endpoint string
	var body []byte
	var err error

	switch format {
	case formatGeminiNative:
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, prov.Model)
		if prov.APIKey != "" {
			headers["x-goog-api-key"] = prov.APIKey
		}
		body, err = buildGeminiRequest(prompt)

	case formatAnthropic:
		endpoint = base + "/messages"
		if prov.APIKey != "" {
			headers["x-api-key"] = prov.APIKey
		}
		headers["anthropic-version"] = "2023-06-01"
		body, err = buildAnthropicRequest(prov.Model, prompt)

	case formatOllama:
		endpoint = base + "/api/chat"
		body, err = buildOllamaRequest(prov.Model, prompt)

	default: // formatOpenAIChat
		endpoint = base
		if !strings.HasSuffix(endpoint, "/chat/completions") {
			endpoint += "/chat/completions"
		}
		if prov.APIKey != "" {
			headers["Authorization"] = "Bearer " + prov.APIKey
		}
		// Arbitrary OpenAI-compatible servers do not all accept response_format.
		body, err = buildOpenAIChatRequest(prov.Model, prompt, prov.ID == ProviderGroq)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

// ---------------------------------------------------------------------------
// HTTP completer
// ---------------------------------------------------------------------------

type httpCompleter struct {
	prov   Provider
	format apiFormat
	client *resty.Client
}

func newHTTPCompleter(p Provider, format apiFormat) *httpCompleter {
	return &httpCompleter{
		prov:   p,
		format: format,
		client: resty.NewWithClient(makeHTTPClient(p.Proxy, p.Timeout)),
	}
}

// Complete posts one prompt and returns the text of the reply.
func (c *httpCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	endpoint, headers, body, err := buildHTTPRequest(c.prov, prompt, c.format)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.prov.Name, err)
	}
	if resp.IsError() {
		if _, err := ExtractText(resp.Body()); errors.Is(err, ErrAPI) {
			return "", fmt.Errorf("%s returned status %d: %w", c.prov.Name, resp.StatusCode(), err)
		}
		return "", fmt.Errorf("%s returned status %d: %s", c.prov.Name, resp.StatusCode(), truncate(resp.String(), 500))
	}
	return ExtractText(resp.Body())
}
