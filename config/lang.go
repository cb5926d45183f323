package config

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ParseLanguages splits comma-separated lists of language codes, checks
// each code and drops duplicates. Codes are returned as written so they can
// be compared with Language headers and directory names.
func ParseLanguages(lists ...string) ([]string, error) {
	var codes []string
	for _, list := range lists {
		for _, code := range strings.Split(list, ",") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if _, err := language.Parse(canonicalize(code)); err != nil {
				return nil, fmt.Errorf("invalid language code %q: %w", code, err)
			}
			codes = append(codes, code)
		}
	}
	return lo.Uniq(codes), nil
}

func canonicalize(lang string) string {
	return strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
}

// LanguageName returns the native name of a language code, e.g. "español"
// for "es". Unknown codes are returned unchanged.
func LanguageName(code string) string {
	tag, err := language.Parse(canonicalize(code))
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}
