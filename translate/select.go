// Package translate fills missing or flagged PO entries with translations
// produced by a chat completion service.
//
// A catalog is processed in four steps: Select picks the work items,
// BuildPrompt turns each one into a self-contained request, a Translator
// sends it and parses the JSON answer, and Apply writes the result back.
// Processor wires the steps together for whole directory trees.
package translate

import (
	"strings"

	"github.com/samber/lo"

	"github.com/minios-linux/pofill/pofile"
)

// WorkItem is a snapshot of an entry selected for translation.
type WorkItem struct {
	MsgID   string
	MsgCtxt string
}

// SelectOptions enables the additional selection criteria. With all fields
// false only untranslated, non-fuzzy entries are selected.
type SelectOptions struct {
	// RefreshAll selects every entry that has source text.
	RefreshAll bool
	// FixNewlines selects entries whose leading or trailing newline does not
	// match between source and translation.
	FixNewlines bool
	// FixBraces selects entries with "{" in the source but not in the translation.
	FixBraces bool
}

// Select returns the entries of f that need translation, in catalog order.
// Obsolete and plural entries are never selected.
func Select(f *pofile.File, opts SelectOptions) []WorkItem {
	return lo.FilterMap(f.Entries, func(e *pofile.Entry, _ int) (WorkItem, bool) {
		if !selectable(e) || !needsTranslation(e, opts) {
			return WorkItem{}, false
		}
		return WorkItem{MsgID: e.MsgID, MsgCtxt: e.MsgCtxt}, true
	})
}

func selectable(e *pofile.Entry) bool {
	return e.MsgID != "" && !e.Obsolete && e.MsgIDPlural == ""
}

func needsTranslation(e *pofile.Entry, opts SelectOptions) bool {
	switch {
	case e.MsgStr == "" && !e.IsFuzzy():
		return true
	case opts.RefreshAll:
		return true
	case opts.FixNewlines && newlineMismatch(e.MsgID, e.MsgStr):
		return true
	case opts.FixBraces && strings.Contains(e.MsgID, "{") && !strings.Contains(e.MsgStr, "{"):
		return true
	}
	return false
}

func newlineMismatch(src, dst string) bool {
	return strings.HasPrefix(src, "\n") != strings.HasPrefix(dst, "\n") ||
		strings.HasSuffix(src, "\n") != strings.HasSuffix(dst, "\n")
}
