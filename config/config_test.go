package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing optional file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), FileName), false)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if !reflect.DeepEqual(cfg, Default()) {
			t.Fatalf("Load = %#v, want defaults", cfg)
		}
	})

	t.Run("missing required file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "custom.yaml"), true); err == nil {
			t.Fatal("expected error for missing --config file")
		}
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, ""), true)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.Provider != "openai" {
			t.Fatalf("Provider = %q, want openai", cfg.Provider)
		}
	})

	t.Run("reads all keys", func(t *testing.T) {
		path := writeConfig(t, "languages: [es, fr, es]\n"+
			"folders: [locale, apps/locale]\n"+
			"provider: ollama\n"+
			"model: llama3.1\n"+
			"base_url: http://gpu:11434\n"+
			"timeout: 90s\n"+
			"folder_language: true\n"+
			"refresh_all: true\n"+
			"fix_newlines: true\n"+
			"fix_braces: true\n"+
			"fuzzy: true\n"+
			"accept_failed: true\n")

		cfg, err := Load(path, true)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		want := &Config{
			Languages:      []string{"es", "fr"},
			Folders:        []string{"locale", "apps/locale"},
			Provider:       "ollama",
			Model:          "llama3.1",
			BaseURL:        "http://gpu:11434",
			Timeout:        90 * time.Second,
			FolderLanguage: true,
			RefreshAll:     true,
			FixNewlines:    true,
			FixBraces:      true,
			Fuzzy:          true,
			AcceptFailed:   true,
		}
		if !reflect.DeepEqual(cfg, want) {
			t.Fatalf("Load = %#v, want %#v", cfg, want)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := Load(writeConfig(t, "langs: [es]\n"), true)
		if err == nil || !strings.Contains(err.Error(), "langs") {
			t.Fatalf("Load error = %v, want unknown key error", err)
		}
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		_, err := Load(writeConfig(t, "provider: skynet\n"), true)
		if err == nil || !strings.Contains(err.Error(), "unknown provider") {
			t.Fatalf("Load error = %v", err)
		}
	})

	t.Run("rejects bad language", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "languages: [\"not a language\"]\n"), true); err == nil {
			t.Fatal("expected language validation error")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvProvider, "groq")
	t.Setenv(EnvModel, "llama-3.1-8b-instant")
	t.Setenv(EnvBaseURL, "https://proxy.example/v1")

	cfg := Default()
	cfg.Model = "from-file"
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}
	if cfg.Provider != "groq" || cfg.Model != "llama-3.1-8b-instant" || cfg.BaseURL != "https://proxy.example/v1" {
		t.Fatalf("ApplyEnv = %#v", cfg)
	}

	t.Setenv(EnvProvider, "skynet")
	if err := Default().ApplyEnv(); err == nil {
		t.Fatal("expected error for unknown provider in environment")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("POFILL_MODEL=from-dotenv\nPOFILL_API_KEY=sk-dotenv\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv(EnvModel, "from-shell")
	t.Setenv(EnvAPIKey, "")
	os.Unsetenv(EnvAPIKey)

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv error: %v", err)
	}
	if got := os.Getenv(EnvModel); got != "from-shell" {
		t.Fatalf("%s = %q, .env must not override the environment", EnvModel, got)
	}
	if got := os.Getenv(EnvAPIKey); got != "sk-dotenv" {
		t.Fatalf("%s = %q, want sk-dotenv", EnvAPIKey, got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv(missing) error: %v", err)
	}
}

func TestParseLanguages(t *testing.T) {
	got, err := ParseLanguages("es, fr,pt_BR", "fr,zh-Hans", "")
	if err != nil {
		t.Fatalf("ParseLanguages error: %v", err)
	}
	want := []string{"es", "fr", "pt_BR", "zh-Hans"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseLanguages = %v, want %v", got, want)
	}

	for _, bad := range []string{"es,e", "spanish language", "12"} {
		if _, err := ParseLanguages(bad); err == nil {
			t.Errorf("ParseLanguages(%q) error = nil", bad)
		}
	}
}

func TestLanguageName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"es", "español"},
		{"de", "Deutsch"},
		{"not a code", "not a code"},
	}
	for _, tc := range cases {
		if got := LanguageName(tc.in); got != tc.want {
			t.Fatalf("LanguageName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
