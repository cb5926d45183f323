package provider

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// ErrAPI wraps error objects returned by the service.
var ErrAPI = errors.New("API error")

// responsePaths are the gjson paths of the reply text in the supported
// response shapes, tried in order.
var responsePaths = []string{
	"choices.0.message.content",         // OpenAI chat
	"candidates.0.content.parts.0.text", // Gemini generateContent
	`content.#(type=="text").text`,      // Anthropic messages
	"message.content",                   // Ollama chat
	"response",                          // Ollama generate
}

// ExtractText returns the reply text of a completion response body.
func ExtractText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid JSON response: %s", truncate(string(body), 300))
	}
	root := gjson.ParseBytes(body)

	if e := root.Get("error"); e.Exists() {
		if msg := e.Get("message"); msg.Exists() {
			return "", fmt.Errorf("%w: %s", ErrAPI, msg.String())
		}
		return "", fmt.Errorf("%w: %s", ErrAPI, e.String())
	}

	for _, path := range responsePaths {
		if v := root.Get(path); v.Type == gjson.String {
			return v.String(), nil
		}
	}
	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
