package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// ---------------------------------------------------------------------------
// ExtractText
// ---------------------------------------------------------------------------

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai", `{"choices":[{"message":{"role":"assistant","content":"{\"translation\":\"Hola\"}"}}]}`, `{"translation":"Hola"}`},
		{"gemini", `{"candidates":[{"content":{"parts":[{"text":"gemini text"}]}}]}`, "gemini text"},
		{"anthropic", `{"content":[{"type":"thinking","thinking":"x"},{"type":"text","text":"claude text"}]}`, "claude text"},
		{"ollama chat", `{"model":"llama3.1","message":{"role":"assistant","content":"ollama text"},"done":true}`, "ollama text"},
		{"ollama generate", `{"response":"generated"}`, "generated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText([]byte(tt.body))
			if err != nil {
				t.Fatalf("ExtractText() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTextErrors(t *testing.T) {
	_, err := ExtractText([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	if !errors.Is(err, ErrAPI) || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("ExtractText(error object) error = %v", err)
	}

	_, err = ExtractText([]byte(`{"error":"model not found"}`))
	if !errors.Is(err, ErrAPI) || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("ExtractText(error string) error = %v", err)
	}

	if _, err := ExtractText([]byte(`not json`)); err == nil {
		t.Fatal("ExtractText(invalid) error = nil")
	}
	if _, err := ExtractText([]byte(`{"id":"x"}`)); err == nil {
		t.Fatal("ExtractText(unknown shape) error = nil")
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := strings.Repeat("ж", 300)
	got := truncate(s, 501)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate() produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("ж", 250) + "..."; got != want {
		t.Fatalf("truncate() = %q, want 250 runes and ellipsis", got)
	}
	if got := truncate("short", 500); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Provider selection
// ---------------------------------------------------------------------------

func TestDefaultProviders(t *testing.T) {
	provs := DefaultProviders()
	for _, id := range IDs() {
		p, ok := provs[id]
		if !ok || p.ID != id {
			t.Fatalf("DefaultProviders()[%q] = %+v", id, p)
		}
		if p.Timeout <= 0 {
			t.Errorf("provider %s has no timeout", id)
		}
	}
	if provs[ProviderOpenAI].Model != DefaultModel {
		t.Errorf("openai model = %q, want %q", provs[ProviderOpenAI].Model, DefaultModel)
	}
}

func TestValidate(t *testing.T) {
	base := DefaultProviders()

	oa := base[ProviderOpenAI]
	if err := Validate(oa); err == nil {
		t.Fatal("Validate(openai without key) error = nil")
	}
	oa.APIKey = "sk-test"
	if err := Validate(oa); err != nil {
		t.Fatalf("Validate(oa) error: %v", err)
	}

	if err := Validate(base[ProviderOllama]); err != nil {
		t.Fatalf("Validate(ollama) error: %v", err)
	}

	custom := base[ProviderCustomOpenAI]
	custom.Model = "local"
	if err := Validate(custom); err == nil {
		t.Fatal("Validate(custom-openai without base URL) error = nil")
	}

	if err := Validate(Provider{ID: "nope", Model: "m", BaseURL: "http://x"}); err == nil {
		t.Fatal("Validate(unknown) error = nil")
	}
	if _, err := New(Provider{ID: ProviderGroq}); err == nil {
		t.Fatal("New(incomplete) error = nil")
	}
}

// ---------------------------------------------------------------------------
// HTTP formats
// ---------------------------------------------------------------------------

type captured struct {
	path    string
	headers http.Header
	body    gjson.Result
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.path = r.URL.Path
		c.headers = r.Header.Clone()
		c.body = gjson.ParseBytes(data)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func complete(t *testing.T, p Provider) string {
	t.Helper()
	c, err := New(p)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	got, err := c.Complete(context.Background(), "translate me")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	return got
}

func TestGroqRequest(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	p := DefaultProviders()[ProviderGroq]
	p.BaseURL, p.APIKey = srv.URL+"/openai/v1", "gsk"

	if got := complete(t, p); got != "ok" {
		t.Fatalf("Complete() = %q, want ok", got)
	}
	if req.path != "/openai/v1/chat/completions" {
		t.Errorf("path = %q", req.path)
	}
	if got := req.headers.Get("Authorization"); got != "Bearer gsk" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.body.Get("messages.#").Int(); got != 1 {
		t.Errorf("messages = %d, want a single user turn", got)
	}
	if got := req.body.Get("messages.0.content").String(); got != "translate me" {
		t.Errorf("content = %q", got)
	}
	if got := req.body.Get("response_format.type").String(); got != "json_object" {
		t.Errorf("response_format = %q", got)
	}
}

func TestCustomOpenAIRequest(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	p := DefaultProviders()[ProviderCustomOpenAI]
	p.BaseURL, p.Model = srv.URL+"/v1/chat/completions", "local-model"

	complete(t, p)
	if req.path != "/v1/chat/completions" {
		t.Errorf("path = %q", req.path)
	}
	if req.headers.Get("Authorization") != "" {
		t.Error("Authorization sent without API key")
	}
	if req.body.Get("response_format").Exists() {
		t.Error("response_format sent to custom server")
	}
}

func TestGeminiRequest(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	p := DefaultProviders()[ProviderGoogle]
	p.BaseURL, p.APIKey = srv.URL, "AIza"

	complete(t, p)
	if req.path != "/v1beta/models/"+p.Model+":generateContent" {
		t.Errorf("path = %q", req.path)
	}
	if got := req.headers.Get("x-goog-api-key"); got != "AIza" {
		t.Errorf("x-goog-api-key = %q", got)
	}
	if got := req.body.Get("contents.0.parts.0.text").String(); got != "translate me" {
		t.Errorf("text = %q", got)
	}
	if got := req.body.Get("generationConfig.responseMimeType").String(); got != "application/json" {
		t.Errorf("responseMimeType = %q", got)
	}
}

func TestAnthropicRequest(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, `{"content":[{"type":"text","text":"ok"}]}`)
	p := DefaultProviders()[ProviderAnthropic]
	p.BaseURL, p.APIKey = srv.URL+"/v1", "sk-ant"

	complete(t, p)
	if req.path != "/v1/messages" {
		t.Errorf("path = %q", req.path)
	}
	if req.headers.Get("x-api-key") != "sk-ant" || req.headers.Get("anthropic-version") != "2023-06-01" {
		t.Errorf("headers = %v", req.headers)
	}
	if got := req.body.Get("messages.0.role").String(); got != "user" {
		t.Errorf("role = %q", got)
	}
}

func TestOllamaRequest(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, `{"message":{"role":"assistant","content":"ok"},"done":true}`)
	p := DefaultProviders()[ProviderOllama]
	p.BaseURL = srv.URL

	complete(t, p)
	if req.path != "/api/chat" {
		t.Errorf("path = %q", req.path)
	}
	if req.body.Get("format").String() != "json" || req.body.Get("stream").Bool() {
		t.Errorf("body = %s", req.body.Raw)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`)
	p := DefaultProviders()[ProviderGroq]
	p.BaseURL, p.APIKey = srv.URL, "bad"

	c, err := New(p)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	_, err = c.Complete(context.Background(), "x")
	if !errors.Is(err, ErrAPI) || !strings.Contains(err.Error(), "401") {
		t.Fatalf("Complete() error = %v", err)
	}

	srv2, _ := newServer(t, http.StatusBadGateway, `<html>bad gateway</html>`)
	p.BaseURL = srv2.URL
	c, _ = New(p)
	if _, err := c.Complete(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("Complete() error = %v, want status 502", err)
	}
}

// ---------------------------------------------------------------------------
// OpenAI client
// ---------------------------------------------------------------------------

func TestOpenAIRequest(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o-mini",
		"choices": [{
			"index": 0,
			"finish_reason": "stop",
			"message": {"role": "assistant", "content": "{\"translation\":\"Hola!\",\"failed\":false}"}
		}]
	}`)
	p := DefaultProviders()[ProviderOpenAI]
	p.BaseURL, p.APIKey = srv.URL+"/v1/", "sk-test"

	got := complete(t, p)
	if got != `{"translation":"Hola!","failed":false}` {
		t.Fatalf("Complete() = %q", got)
	}
	if req.path != "/v1/chat/completions" {
		t.Errorf("path = %q", req.path)
	}
	if got := req.headers.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.body.Get("model").String(); got != DefaultModel {
		t.Errorf("model = %q", got)
	}
	if got := req.body.Get("response_format.type").String(); got != "json_object" {
		t.Errorf("response_format = %q", got)
	}
	if got := req.body.Get("messages.0.content").String(); got != "translate me" {
		t.Errorf("content = %q", got)
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	p := DefaultProviders()[ProviderOpenAI]
	p.BaseURL, p.APIKey = srv.URL+"/v1/", "sk-bad"

	c, err := New(p)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := c.Complete(context.Background(), "x"); !errors.Is(err, ErrAPI) {
		t.Fatalf("Complete() error = %v, want ErrAPI", err)
	}
}
