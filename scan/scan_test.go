package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/minios-linux/pofill/pofile"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(path, []byte("msgid \"\"\nmsgstr \"\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "locale", "fr", "LC_MESSAGES", "django.po"))
	writeFile(t, filepath.Join(root, "locale", "es", "LC_MESSAGES", "django.po"))
	writeFile(t, filepath.Join(root, "locale", "es", "LC_MESSAGES", "django.mo"))
	writeFile(t, filepath.Join(root, "template.pot"))
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "de.po"))
	writeFile(t, filepath.Join(root, ".git", "x.po"))

	got, err := Walk(root, ".po")
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	want := []string{
		filepath.Join(root, "locale", "es", "LC_MESSAGES", "django.po"),
		filepath.Join(root, "locale", "fr", "LC_MESSAGES", "django.po"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Walk() = %v, want %v", got, want)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	if _, err := Walk(filepath.Join(t.TempDir(), "nope"), ".po"); err == nil {
		t.Fatal("Walk(missing) error = nil")
	}

	file := filepath.Join(t.TempDir(), "a.po")
	writeFile(t, file)
	if _, err := Walk(file, ".po"); err == nil {
		t.Fatal("Walk(file) error = nil")
	}
}

func TestDetectLanguage(t *testing.T) {
	withHeader := func(lang string) *pofile.File {
		f := pofile.NewFile()
		if lang != "" {
			f.SetHeaderField("Language", lang)
		}
		return f
	}
	path := filepath.Join("project", "locale", "fr", "LC_MESSAGES", "django.po")

	tests := []struct {
		name       string
		header     string
		langs      []string
		fromFolder bool
		wantLang   string
		wantSource Source
	}{
		{"header match", "es", []string{"es", "fr"}, false, "es", SourceHeader},
		{"header wins over folder", "es", []string{"es", "fr"}, true, "es", SourceHeader},
		{"header not requested", "de", []string{"es", "fr"}, false, "", SourceNone},
		{"folder fallback", "de", []string{"es", "fr"}, true, "fr", SourceFolder},
		{"no header folder fallback", "", []string{"fr"}, true, "fr", SourceFolder},
		{"folder disabled", "", []string{"fr"}, false, "", SourceNone},
		{"nothing matches", "", []string{"ja"}, true, "", SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, src := DetectLanguage(withHeader(tt.header), path, tt.langs, tt.fromFolder)
			if lang != tt.wantLang || src != tt.wantSource {
				t.Fatalf("DetectLanguage() = (%q, %v), want (%q, %v)", lang, src, tt.wantLang, tt.wantSource)
			}
		})
	}
}
