// Package scan finds PO catalogs on disk and decides which language each
// one is translated into.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/minios-linux/pofill/pofile"
)

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// Walk returns every file below root whose name ends in ext, sorted.
// Unreadable entries are skipped; only an unreadable root is an error.
func Walk(root, ext string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanning %s: not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Source tells where DetectLanguage found the language.
type Source int

const (
	// SourceNone means no requested language applies to the file.
	SourceNone Source = iota
	// SourceHeader means the Language header matched.
	SourceHeader
	// SourceFolder means a directory in the path matched.
	SourceFolder
)

func (s Source) String() string {
	switch s {
	case SourceHeader:
		return "header"
	case SourceFolder:
		return "folder"
	default:
		return "none"
	}
}

// DetectLanguage picks the target language of a catalog. The Language
// header wins when it is one of langs. Otherwise, with fromFolder set, the
// first path segment equal to a requested code is used.
func DetectLanguage(f *pofile.File, path string, langs []string, fromFolder bool) (string, Source) {
	if lang := f.Language(); lang != "" && lo.Contains(langs, lang) {
		return lang, SourceHeader
	}
	if !fromFolder {
		return "", SourceNone
	}
	segments := strings.Split(filepath.ToSlash(path), "/")
	if lang, ok := lo.Find(segments, func(s string) bool { return lo.Contains(langs, s) }); ok {
		return lang, SourceFolder
	}
	return "", SourceNone
}
