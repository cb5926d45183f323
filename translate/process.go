package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minios-linux/pofill/pofile"
	"github.com/minios-linux/pofill/scan"
)

// Errors wrapped into FileResult.Err.
var (
	ErrParse = errors.New("cannot read catalog")
	ErrSave  = errors.New("cannot save catalog")
)

// Options controls a translation run. It is passed by value and never
// modified by the processor.
type Options struct {
	// Languages are the requested target language codes.
	Languages []string
	// FolderLanguage infers the language from the directory path when the
	// Language header does not match.
	FolderLanguage bool
	// Select enables extra selection criteria.
	Select SelectOptions
	// StripFuzzy removes every fuzzy flag before the file is processed.
	StripFuzzy bool
	// AcceptFailed applies translations the model marked as failed.
	AcceptFailed bool
	// DryRun reports what would be translated without calling the service
	// or writing files.
	DryRun bool
	// Logger receives all log events.
	Logger zerolog.Logger
	// OnProgress is called once with done == 0 before the first work item of
	// a file and after every work item.
	OnProgress func(path string, done, total int)
}

func (o Options) progress(path string, done, total int) {
	if o.OnProgress != nil {
		o.OnProgress(path, done, total)
	}
}

// Status is the outcome of processing one file.
type Status int

const (
	// StatusDone means the catalog was processed, possibly with failed entries.
	StatusDone Status = iota
	// StatusSkipped means no requested language applies to the catalog.
	StatusSkipped
	// StatusError means the catalog could not be read or saved.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusSkipped:
		return "skipped"
	default:
		return "error"
	}
}

// FileResult describes what happened to one catalog.
type FileResult struct {
	Path     string
	Language string
	Status   Status
	// Selected is the number of work items.
	Selected int
	// Translated is the number of work items applied to the catalog.
	Translated int
	// Failed is the number of work items left unchanged.
	Failed int
	Err    error
}

// Summary aggregates the results of a run.
type Summary struct {
	Files []FileResult
}

// Counts returns how many files ended in each status.
func (s Summary) Counts() (done, skipped, failed int) {
	for _, r := range s.Files {
		switch r.Status {
		case StatusDone:
			done++
		case StatusSkipped:
			skipped++
		case StatusError:
			failed++
		}
	}
	return
}

// Entries returns the total of selected, translated and failed work items.
func (s Summary) Entries() (selected, translated, failed int) {
	for _, r := range s.Files {
		selected += r.Selected
		translated += r.Translated
		failed += r.Failed
	}
	return
}

// HasErrors reports whether any file ended in StatusError.
func (s Summary) HasErrors() bool {
	_, _, failed := s.Counts()
	return failed > 0
}

// Processor translates catalogs one file and one entry at a time.
type Processor struct {
	completer Completer
	opts      Options
}

// NewProcessor returns a Processor sending prompts to c. c may be nil when
// opts.DryRun is set.
func NewProcessor(c Completer, opts Options) *Processor {
	return &Processor{completer: c, opts: opts}
}

// Run processes every catalog below roots in order. A cancelled context
// stops the run after the current work item; the file being processed is
// still saved.
func (p *Processor) Run(ctx context.Context, roots []string) Summary {
	var sum Summary
	for _, root := range roots {
		paths, err := scan.Walk(root, ".po")
		if err != nil {
			p.opts.Logger.Error().Err(err).Str("folder", root).Msg("cannot scan folder")
			sum.Files = append(sum.Files, FileResult{Path: root, Status: StatusError, Err: err})
			continue
		}
		for _, path := range paths {
			if ctx.Err() != nil {
				return sum
			}
			p.opts.Logger.Info().Str("file", path).Msg("discovered catalog")
			sum.Files = append(sum.Files, p.ProcessFile(ctx, path))
		}
	}
	return sum
}

// ProcessFile runs the whole pipeline on the catalog at path.
func (p *Processor) ProcessFile(ctx context.Context, path string) FileResult {
	log := p.opts.Logger.With().Str("file", path).Logger()
	res := FileResult{Path: path}

	if p.opts.StripFuzzy && !p.opts.DryRun {
		if err := StripFuzzy(path, log); err != nil {
			log.Error().Err(err).Msg("cannot remove fuzzy flags")
		}
	}

	file, err := pofile.ParseFile(path)
	if err != nil {
		log.Error().Err(err).Msg("cannot read catalog")
		res.Status, res.Err = StatusError, fmt.Errorf("%w: %w", ErrParse, err)
		return res
	}
	if p.opts.StripFuzzy && p.opts.DryRun {
		file.StripFuzzy()
	}

	lang, src := scan.DetectLanguage(file, path, p.opts.Languages, p.opts.FolderLanguage)
	switch src {
	case scan.SourceNone:
		log.Warn().Str("header", file.Language()).Msg("skipping catalog due to language mismatch")
		res.Status = StatusSkipped
		return res
	case scan.SourceFolder:
		log.Info().Str("lang", lang).Msg("inferred language from folder")
	}
	res.Language = lang
	log = log.With().Str("lang", lang).Logger()

	items := Select(file, p.opts.Select)
	res.Selected = len(items)
	total, translated, fuzzy, untranslated := file.Stats()
	log.Info().
		Int("entries", total).
		Int("translated", translated).
		Int("fuzzy", fuzzy).
		Int("untranslated", untranslated).
		Int("selected", len(items)).
		Msg("catalog loaded")

	if p.opts.DryRun {
		for i, item := range items {
			log.Debug().Int("index", i+1).Str("msgid", item.MsgID).Msg("would translate")
		}
		res.Status = StatusDone
		return res
	}
	if len(items) == 0 {
		res.Status = StatusDone
		return res
	}

	p.translateItems(ctx, file, items, &res, log)

	if err := ctx.Err(); err != nil && res.Translated == 0 {
		log.Warn().Msg("interrupted before any entry was translated, catalog left untouched")
		res.Status, res.Err = StatusError, err
		return res
	}

	file.TouchRevisionDate()
	if err := file.WriteFile(path); err != nil {
		log.Error().Err(err).Msg("cannot save catalog")
		res.Status, res.Err = StatusError, fmt.Errorf("%w: %w", ErrSave, err)
		return res
	}
	_, translated, _, _ = file.Stats()
	log.Info().Int("applied", res.Translated).Int("translated", translated).Int("entries", total).Msg("finished catalog")

	if err := ctx.Err(); err != nil {
		res.Status, res.Err = StatusError, err
		return res
	}
	res.Status = StatusDone
	return res
}

func (p *Processor) translateItems(ctx context.Context, file *pofile.File, items []WorkItem, res *FileResult, log zerolog.Logger) {
	tr := NewTranslator(p.completer, log)
	p.opts.progress(res.Path, 0, len(items))

	for i, item := range items {
		if ctx.Err() != nil {
			log.Warn().Int("done", i).Int("total", len(items)).Msg("interrupted, saving partial result")
			return
		}
		itemLog := log.With().Int("index", i+1).Int("total", len(items)).Str("msgid", truncate(item.MsgID, 80)).Logger()
		itemLog.Info().Msg("translating entry")

		prompt := BuildPrompt(item.MsgID, item.MsgCtxt, SurroundingTexts(items, i), res.Language)
		result, ok := tr.Translate(ctx, prompt)
		switch {
		case !ok:
			itemLog.Error().Msg("no translation returned")
			res.Failed++
		case result.Translation == "":
			itemLog.Warn().Bool("failed", result.Failed).Msg("empty translation returned, entry left unchanged")
			res.Failed++
		case result.Failed && !p.opts.AcceptFailed:
			itemLog.Warn().Str("translation", result.Translation).Msg("model could not translate with confidence, entry left unchanged")
			res.Failed++
		default:
			if Apply(file, item, result.Translation) == 0 {
				itemLog.Warn().Msg("no entry matches translated text")
				res.Failed++
			} else {
				res.Translated++
			}
		}
		p.opts.progress(res.Path, i+1, len(items))
	}
}

// StripFuzzy removes the fuzzy flag from every entry of the catalog at
// path and saves it immediately.
func StripFuzzy(path string, log zerolog.Logger) error {
	file, err := pofile.ParseFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	n := file.StripFuzzy()
	if err := file.WriteFile(path); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	log.Info().Int("entries", n).Msg("fuzzy flags removed")
	return nil
}
