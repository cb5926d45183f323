// Package pofile reads and writes gettext PO/POT catalogs.
//
// The writer keeps entry order, comments, references and flags exactly as
// they were parsed, so a catalog that is loaded and saved without changes
// only differs in line wrapping of long strings.
package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FlagFuzzy marks a translation that needs human review.
const FlagFuzzy = "fuzzy"

// Entry is a single message of a catalog.
type Entry struct {
	// TranslatorComments are "# " lines.
	TranslatorComments []string
	// ExtractedComments are "#." lines.
	ExtractedComments []string
	// References are "#:" source locations.
	References []string
	// Flags are "#," flags such as fuzzy or c-format.
	Flags []string
	// PreviousMsgID is the "#| msgid" of a fuzzy entry.
	PreviousMsgID string

	// MsgCtxt disambiguates entries sharing a msgid. Empty means no context.
	MsgCtxt     string
	MsgID       string
	MsgIDPlural string
	MsgStr      string
	// MsgStrPlural maps plural form index to translation.
	MsgStrPlural map[int]string

	// Obsolete marks "#~" entries.
	Obsolete bool
	// CommentOnly marks a block of comments with no message, such as a
	// licence notice. Only its comments are written back.
	CommentOnly bool
}

// IsFuzzy reports whether the entry carries the fuzzy flag.
func (e *Entry) IsFuzzy() bool {
	return e.HasFlag(FlagFuzzy)
}

// HasFlag reports whether flag is present.
func (e *Entry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// SetFuzzy adds or removes the fuzzy flag.
func (e *Entry) SetFuzzy(fuzzy bool) {
	if fuzzy {
		if !e.IsFuzzy() {
			e.Flags = append(e.Flags, FlagFuzzy)
		}
		return
	}
	kept := e.Flags[:0]
	for _, f := range e.Flags {
		if f != FlagFuzzy {
			kept = append(kept, f)
		}
	}
	e.Flags = kept
}

// IsTranslated returns true if the entry has a non-empty, non-fuzzy translation.
func (e *Entry) IsTranslated() bool {
	if e.MsgID == "" || e.IsFuzzy() {
		return false
	}
	if e.MsgIDPlural != "" {
		if len(e.MsgStrPlural) == 0 {
			return false
		}
		for _, v := range e.MsgStrPlural {
			if v == "" {
				return false
			}
		}
		return true
	}
	return e.MsgStr != ""
}

// File is a parsed catalog.
type File struct {
	// Header is the metadata entry (msgid "").
	Header *Entry
	// Entries holds the messages in file order.
	Entries []*Entry

	// headerPos is the number of entries written before the header.
	headerPos int
}

// NewFile creates an empty catalog with an empty header.
func NewFile() *File {
	return &File{Header: &Entry{}}
}

// HeaderField returns a header field value, matching the name case-insensitively.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// SetHeaderField replaces a header field or appends it when missing.
func (f *File) SetHeaderField(name, value string) {
	if f.Header == nil {
		f.Header = &Entry{}
	}
	lines := strings.Split(f.Header.MsgStr, "\n")
	for i, line := range lines {
		key, _, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), name) {
			lines[i] = name + ": " + value
			f.Header.MsgStr = strings.Join(lines, "\n")
			return
		}
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = append(lines[:n-1], name+": "+value, "")
	} else {
		lines = append(lines, name+": "+value)
	}
	f.Header.MsgStr = strings.Join(lines, "\n")
}

// Language returns the Language header.
func (f *File) Language() string {
	return f.HeaderField("Language")
}

// TouchRevisionDate sets PO-Revision-Date to now.
func (f *File) TouchRevisionDate() {
	f.SetHeaderField("PO-Revision-Date", time.Now().UTC().Format("2006-01-02 15:04+0000"))
}

// StripFuzzy removes the fuzzy flag from every entry and returns how many
// entries carried it.
func (f *File) StripFuzzy() int {
	n := 0
	for _, e := range f.Entries {
		if e.IsFuzzy() {
			e.SetFuzzy(false)
			n++
		}
	}
	return n
}

// Stats counts live (non-obsolete) entries.
func (f *File) Stats() (total, translated, fuzzy, untranslated int) {
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete || e.CommentOnly {
			continue
		}
		total++
		switch {
		case e.IsFuzzy():
			fuzzy++
		case e.IsTranslated():
			translated++
		default:
			untranslated++
		}
	}
	return
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

type parser struct {
	file    *File
	current *Entry
	// hasMsgID is set once the current block has a msgid line.
	hasMsgID bool
	// field is the keyword the next continuation line belongs to.
	field  string
	plural int
	line   int
}

// Parse reads a catalog from r.
func Parse(r io.Reader) (*File, error) {
	p := &parser{file: &File{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PO data: %w", err)
	}
	p.flush()
	return p.file, nil
}

// ParseFile reads a catalog from disk.
func ParseFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	f, err := Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (p *parser) flush() {
	if p.current == nil {
		return
	}
	switch {
	case !p.hasMsgID:
		p.current.CommentOnly = true
		p.file.Entries = append(p.file.Entries, p.current)
	case p.file.Header == nil && p.current.MsgID == "" && !p.current.Obsolete && p.current.MsgIDPlural == "":
		p.file.Header = p.current
		p.file.headerPos = len(p.file.Entries)
	default:
		p.file.Entries = append(p.file.Entries, p.current)
	}
	p.current = nil
	p.hasMsgID = false
	p.field = ""
}

func (p *parser) entry() *Entry {
	if p.current == nil {
		p.current = &Entry{MsgStrPlural: make(map[int]string)}
	}
	return p.current
}

func (p *parser) parseLine(line string) error {
	if strings.TrimSpace(line) == "" {
		p.flush()
		return nil
	}

	e := p.entry()

	if strings.HasPrefix(line, "#~") {
		e.Obsolete = true
		line = strings.TrimPrefix(strings.TrimPrefix(line, "#~"), " ")
		if strings.HasPrefix(line, "|") {
			// "#~| msgid" carries the previous msgid of an obsolete entry.
			line = "#" + line
		}
	}

	if strings.HasPrefix(line, "#") {
		p.parseComment(e, line)
		return nil
	}

	keyword, rest, _ := strings.Cut(line, " ")
	switch {
	case keyword == "msgctxt":
		e.MsgCtxt = unquote(rest)
	case keyword == "msgid":
		e.MsgID = unquote(rest)
		p.hasMsgID = true
	case keyword == "msgid_plural":
		e.MsgIDPlural = unquote(rest)
	case keyword == "msgstr":
		e.MsgStr = unquote(rest)
	case strings.HasPrefix(keyword, "msgstr["):
		var idx int
		if _, err := fmt.Sscanf(keyword, "msgstr[%d]", &idx); err != nil {
			return fmt.Errorf("line %d: invalid plural index %q", p.line, keyword)
		}
		e.MsgStrPlural[idx] = unquote(rest)
		p.plural = idx
	case strings.HasPrefix(line, `"`):
		p.appendContinuation(e, unquote(line))
		return nil
	default:
		return fmt.Errorf("line %d: unexpected content %q", p.line, line)
	}
	p.field = keyword
	return nil
}

func (p *parser) parseComment(e *Entry, line string) {
	switch {
	case strings.HasPrefix(line, "#:"):
		e.References = append(e.References, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "#,"):
		for _, flag := range strings.Split(line[2:], ",") {
			if flag = strings.TrimSpace(flag); flag != "" {
				e.Flags = append(e.Flags, flag)
			}
		}
	case strings.HasPrefix(line, "#."):
		e.ExtractedComments = append(e.ExtractedComments, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "#|"):
		prev := strings.TrimSpace(line[2:])
		if rest, ok := strings.CutPrefix(prev, "msgid "); ok {
			e.PreviousMsgID = unquote(rest)
		}
	default:
		e.TranslatorComments = append(e.TranslatorComments, strings.TrimPrefix(line[1:], " "))
	}
}

func (p *parser) appendContinuation(e *Entry, s string) {
	switch {
	case p.field == "msgctxt":
		e.MsgCtxt += s
	case p.field == "msgid":
		e.MsgID += s
	case p.field == "msgid_plural":
		e.MsgIDPlural += s
	case p.field == "msgstr":
		e.MsgStr += s
	case strings.HasPrefix(p.field, "msgstr["):
		e.MsgStrPlural[p.plural] += s
	}
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Write serializes the catalog to w.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	blocks := make([]*Entry, 0, len(f.Entries)+1)
	blocks = append(blocks, f.Entries...)
	if f.Header != nil {
		pos := min(f.headerPos, len(blocks))
		blocks = append(blocks[:pos], append([]*Entry{f.Header}, blocks[pos:]...)...)
	}
	for i, e := range blocks {
		if i > 0 {
			bw.WriteByte('\n')
		}
		writeEntry(bw, e)
	}
	return bw.Flush()
}

// WriteFile replaces path with the serialized catalog. The data is written
// to a temporary file in the same directory and renamed over path, so a
// failed write leaves the original untouched.
func (f *File) WriteFile(path string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func writeEntry(w *bufio.Writer, e *Entry) {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	for _, c := range e.TranslatorComments {
		if c == "" {
			w.WriteString("#\n")
			continue
		}
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}
	if e.PreviousMsgID != "" {
		marker := "#|"
		if e.Obsolete {
			marker = "#~|"
		}
		fmt.Fprintf(w, "%s msgid %s\n", marker, quote(e.PreviousMsgID))
	}
	if e.CommentOnly {
		return
	}

	if e.MsgCtxt != "" {
		writeField(w, prefix, "msgctxt", e.MsgCtxt)
	}
	writeField(w, prefix, "msgid", e.MsgID)
	if e.MsgIDPlural != "" {
		writeField(w, prefix, "msgid_plural", e.MsgIDPlural)
	}

	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			writeField(w, prefix, fmt.Sprintf("msgstr[%d]", idx), e.MsgStrPlural[idx])
		}
		return
	}
	writeField(w, prefix, "msgstr", e.MsgStr)
}

// writeField writes keyword and value, splitting multi-line values after
// each newline the way msgmerge does.
func writeField(w *bufio.Writer, prefix, keyword, value string) {
	if !strings.Contains(value, "\n") || value == "\n" {
		fmt.Fprintf(w, "%s%s %s\n", prefix, keyword, quote(value))
		return
	}
	fmt.Fprintf(w, "%s%s \"\"\n", prefix, keyword)
	for _, part := range strings.SplitAfter(value, "\n") {
		if part != "" {
			fmt.Fprintf(w, "%s%s\n", prefix, quote(part))
		}
	}
}

var quoter = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\r", `\r`,
)

func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '"':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
