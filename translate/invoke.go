package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Completer sends a single user turn to a chat completion service and
// returns the raw message content of the reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls fn.
func (fn CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return fn(ctx, prompt)
}

// Result is the decoded answer of the service.
type Result struct {
	Translation string `json:"translation"`
	// Failed is set by the model when it could not translate with confidence.
	Failed bool `json:"failed"`
}

// ErrNoTranslation is returned by ParseResult when the reply has no
// "translation" key.
var ErrNoTranslation = errors.New("response has no translation key")

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseResult decodes a service reply. Markdown code fences and text around
// the outermost JSON object are tolerated.
func ParseResult(content string) (Result, error) {
	content = strings.TrimSpace(content)
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return Result{}, fmt.Errorf("no JSON object in response: %s", truncate(content, 200))
	}
	content = content[start : end+1]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return Result{}, fmt.Errorf("invalid JSON response: %w", err)
	}
	if _, ok := fields["translation"]; !ok {
		return Result{}, ErrNoTranslation
	}

	var res Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return Result{}, fmt.Errorf("invalid JSON response: %w", err)
	}
	return res, nil
}

// Translator sends prompts through a Completer and parses the replies.
type Translator struct {
	completer Completer
	log       zerolog.Logger
}

// NewTranslator returns a Translator that logs failures to log.
func NewTranslator(c Completer, log zerolog.Logger) *Translator {
	return &Translator{completer: c, log: log}
}

// Translate sends prompt and returns the parsed result. Transport and parse
// failures are logged and reported as ok == false.
func (t *Translator) Translate(ctx context.Context, prompt string) (res Result, ok bool) {
	content, err := t.completer.Complete(ctx, prompt)
	if err != nil {
		t.log.Error().Err(err).Msg("completion request failed")
		return Result{}, false
	}
	res, err = ParseResult(content)
	if err != nil {
		t.log.Error().Err(err).Str("response", truncate(content, 300)).Msg("unusable completion response")
		return Result{}, false
	}
	return res, true
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
