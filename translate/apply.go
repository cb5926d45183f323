package translate

import "github.com/minios-linux/pofill/pofile"

// Apply stores translation in every live singular entry matching the item's msgid
// and msgctxt. It returns the number of entries changed.
func Apply(f *pofile.File, item WorkItem, translation string) int {
	n := 0
	for _, e := range f.Entries {
		if e.Obsolete || e.MsgIDPlural != "" || e.MsgID != item.MsgID || e.MsgCtxt != item.MsgCtxt {
			continue
		}
		e.MsgStr = translation
		n++
	}
	return n
}
