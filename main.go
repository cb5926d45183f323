// pofill: batch translation of gettext PO catalogs through AI chat completion services.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/pofill/config"
	"github.com/minios-linux/pofill/i18n"
	"github.com/minios-linux/pofill/provider"
	"github.com/minios-linux/pofill/settings"
	"github.com/minios-linux/pofill/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logger is configured by the root command before any subcommand runs.
var logger = zerolog.Nop()

// errFilesFailed is returned when at least one catalog ended in an error.
var errFilesFailed = errors.New("some catalogs could not be processed")

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

// newLogger builds the process logger. level is a zerolog level name;
// verbose lowers it to debug. format is "console" or "json".
func newLogger(w io.Writer, level, format string, verbose bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	switch format {
	case "json":
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
	case "", "console":
		out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: color.NoColor}
		return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
	default:
		return zerolog.Nop(), fmt.Errorf("invalid --log-format %q (use console or json)", format)
	}
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
		verbose   bool
	)

	root := &cobra.Command{
		Use:   "pofill",
		Short: i18n.T("Fill untranslated gettext PO entries using AI translation"),
		Long: i18n.T(`pofill walks directory trees for .po catalogs and translates missing,
fuzzy or flagged entries one at a time through an AI chat completion service.

Commands:
  translate   Translate PO catalogs below one or more folders
  auth        Manage provider API keys
  version     Show version information

AI Providers:
  openai         OpenAI (default)
  groq           Groq
  google         Google AI (Gemini)
  anthropic      Anthropic
  ollama         Ollama local server
  custom-openai  Custom OpenAI-compatible endpoint`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat, verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", i18n.T("Log level: trace, debug, info, warn, error"))
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", i18n.T("Log format: console or json"))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("Enable debug logging"))
	_ = root.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"trace", "debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("log-format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"console", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newTranslateCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFilesFailed) {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint(i18n.T("Error:")), err)
		}
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  i18n.T("Display version, commit hash, and build date."),
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "pofill version %s\n", version)
			fmt.Fprintf(w, "  commit:    %s\n", commit)
			fmt.Fprintf(w, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateOptions struct {
	configPath string
	folders    []string
	langs      []string

	fuzzy          bool
	folderLanguage bool
	refreshAll     bool
	fixNewlines    bool
	fixBraces      bool
	acceptFailed   bool

	provider string
	model    string
	apiKey   string
	baseURL  string
	proxy    string
	timeout  time.Duration

	dryRun   bool
	progress bool
}

// flagAliases maps the historical underscore spellings to the flag names.
var flagAliases = map[string]string{
	"refresh_all":     "refresh-all",
	"api_key":         "api-key",
	"fix_newlines":    "fix-newlines",
	"fix_braces":      "fix-braces",
	"folder_language": "folder-language",
}

func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if alias, ok := flagAliases[name]; ok {
		name = alias
	}
	return pflag.NormalizedName(name)
}

func newTranslateCmd() *cobra.Command {
	var o translateOptions

	cmd := &cobra.Command{
		Use:   "translate",
		Short: i18n.T("Translate PO catalogs using AI"),
		Long: i18n.T(`Translate every .po catalog found below the given folders.

A catalog is processed when its Language header, or with --folder-language
a directory name in its path, is one of the requested languages. Entries with
an empty translation are sent to the AI provider one at a time, together with
the neighbouring source texts as context. The catalog is saved after all its
entries were processed, also when the run is interrupted with Ctrl+C.

Settings are read from .pofill.yaml, .env and POFILL_* environment variables;
flags take precedence.`),
		Example: `  # Translate Spanish and French catalogs with OpenAI
  pofill translate --folder locale --lang es,fr

  # Re-translate fuzzy entries using Groq
  pofill translate --folder po --lang de --fuzzy --provider groq

  # Use a local Ollama model and infer languages from directory names
  pofill translate --folder locale --lang pt_BR --folder-language --provider ollama --model qwen2.5

  # Show what would be translated
  pofill translate --folder locale --lang es --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, &o)
		},
	}

	f := cmd.Flags()
	f.SetNormalizeFunc(normalizeFlagName)

	// Target selection
	f.StringSliceVar(&o.folders, "folder", nil, i18n.T("Folder to scan for .po files (repeatable)"))
	f.StringSliceVar(&o.langs, "lang", nil, i18n.T("Target languages (comma-separated)"))
	f.BoolVar(&o.folderLanguage, "folder-language", false, i18n.T("Infer the language from directory names when the Language header does not match"))

	// Entry selection
	f.BoolVar(&o.fuzzy, "fuzzy", false, i18n.T("Remove fuzzy flags before translating"))
	f.BoolVar(&o.refreshAll, "refresh-all", false, i18n.T("Translate every entry, including translated ones"))
	f.BoolVar(&o.fixNewlines, "fix-newlines", false, i18n.T("Translate entries whose leading or trailing newlines differ from the source"))
	f.BoolVar(&o.fixBraces, "fix-braces", false, i18n.T("Translate entries containing braces"))
	f.BoolVar(&o.acceptFailed, "accept-failed", false, i18n.T("Apply translations the model marked as failed"))

	// Provider selection
	f.StringVar(&o.provider, "provider", "", i18n.T("AI provider: openai, groq, google, anthropic, ollama, custom-openai"))
	f.StringVar(&o.model, "model", "", i18n.T("Model name (default depends on provider)"))
	f.StringVar(&o.apiKey, "api-key", "", i18n.T("API key (or POFILL_API_KEY env var)"))
	f.StringVar(&o.baseURL, "base-url", "", i18n.T("Custom API base URL"))

	// Network
	f.StringVar(&o.proxy, "proxy", "", i18n.T("HTTP/HTTPS proxy URL"))
	f.DurationVar(&o.timeout, "timeout", 0, i18n.T("Request timeout (0 = provider default)"))

	// Run
	f.BoolVar(&o.dryRun, "dry-run", false, i18n.T("Show what would be translated without calling AI"))
	f.BoolVar(&o.progress, "progress", false, i18n.T("Show a progress bar per catalog"))
	f.StringVar(&o.configPath, "config", "", i18n.T("Config file (default .pofill.yaml)"))

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		defaults := provider.DefaultProviders()
		out := make([]string, 0, len(defaults))
		for _, id := range provider.IDs() {
			out = append(out, id+"\t"+defaults[id].Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, _ := cmd.Flags().GetString("provider")
		if p == "" {
			p = provider.ProviderOpenAI
		}
		return modelExamples[p], cobra.ShellCompDirectiveNoFileComp
	})

	_ = cmd.RegisterFlagCompletionFunc("folder", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	})

	return cmd
}

// modelExamples lists well-known models per provider for completion and
// error hints.
var modelExamples = map[string][]string{
	provider.ProviderOpenAI:       {"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"},
	provider.ProviderGroq:         {"llama-3.3-70b-versatile", "mixtral-8x7b-32768"},
	provider.ProviderGoogle:       {"gemini-2.0-flash", "gemini-2.5-flash", "gemini-1.5-pro"},
	provider.ProviderAnthropic:    {"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"},
	provider.ProviderOllama:       {"llama3.1", "qwen2.5", "mistral"},
	provider.ProviderCustomOpenAI: {"gpt-4o-mini"},
}

// loadTranslateConfig layers .env, the config file, the environment and the
// changed flags, then validates the result.
func loadTranslateConfig(flags *pflag.FlagSet, o *translateOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	path := o.configPath
	if path == "" {
		path = config.FileName
	}
	cfg, err := config.Load(path, flags.Changed("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	applyFlags(flags, o, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(cfg.Folders) == 0 {
		return nil, errors.New("no folders to scan: use --folder or set folders in " + config.FileName)
	}
	if len(cfg.Languages) == 0 {
		return nil, errors.New("no target languages: use --lang or set languages in " + config.FileName)
	}
	return cfg, nil
}

// applyFlags copies every flag the user set explicitly into cfg.
func applyFlags(flags *pflag.FlagSet, o *translateOptions, cfg *config.Config) {
	if flags.Changed("folder") {
		cfg.Folders = o.folders
	}
	if flags.Changed("lang") {
		cfg.Languages = o.langs
	}
	if flags.Changed("provider") {
		cfg.Provider = o.provider
	}
	if flags.Changed("model") {
		cfg.Model = o.model
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("proxy") {
		cfg.Proxy = o.proxy
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}

	bools := []struct {
		name string
		src  bool
		dst  *bool
	}{
		{"fuzzy", o.fuzzy, &cfg.Fuzzy},
		{"folder-language", o.folderLanguage, &cfg.FolderLanguage},
		{"refresh-all", o.refreshAll, &cfg.RefreshAll},
		{"fix-newlines", o.fixNewlines, &cfg.FixNewlines},
		{"fix-braces", o.fixBraces, &cfg.FixBraces},
		{"accept-failed", o.acceptFailed, &cfg.AcceptFailed},
	}
	for _, b := range bools {
		if flags.Changed(b.name) {
			*b.dst = b.src
		}
	}
}

// resolveProvider starts from the provider defaults and applies the stored
// base URL, then the configured overrides. cfg must be validated.
func resolveProvider(cfg *config.Config, apiKey string) provider.Provider {
	prov := provider.DefaultProviders()[cfg.Provider]

	if cfg.BaseURL != "" {
		prov.BaseURL = cfg.BaseURL
	} else if storedURL := settings.BaseURL(prov.ID); storedURL != "" {
		prov.BaseURL = storedURL
	}
	if cfg.Model != "" {
		prov.Model = cfg.Model
	}
	if cfg.Proxy != "" {
		prov.Proxy = cfg.Proxy
	}
	if cfg.Timeout > 0 {
		prov.Timeout = cfg.Timeout
	}
	prov.APIKey = apiKey

	return prov
}

// validateProvider explains how to fix a provider that cannot be used.
func validateProvider(prov provider.Provider) error {
	if prov.Model == "" {
		examples := strings.Join(modelExamples[prov.ID], ", ")
		if examples == "" {
			examples = "check provider documentation"
		}
		return fmt.Errorf("--model is required for provider '%s'\n\n"+
			"Example models for %s:\n  %s\n\n"+
			"Usage: --provider %s --model MODEL_NAME",
			prov.ID, prov.Name, examples, prov.ID)
	}

	switch prov.ID {
	case provider.ProviderCustomOpenAI:
		if prov.BaseURL == "" {
			return fmt.Errorf("provider 'custom-openai' requires an endpoint URL\n\n" +
				"Option 1: Configure via auth:\n" +
				"  pofill auth login --provider custom-openai --base-url https://api.example.com/v1\n\n" +
				"Option 2: Pass directly:\n" +
				"  --base-url https://api.example.com/v1")
		}

	case provider.ProviderOllama:
		_, err := resty.New().SetTimeout(2 * time.Second).R().Get(strings.TrimRight(prov.BaseURL, "/") + "/api/tags")
		if err != nil {
			return fmt.Errorf("provider 'ollama' requires Ollama server to be running at %s\n\n"+
				"Start Ollama with: ollama serve\n"+
				"Install from: https://ollama.com", prov.BaseURL)
		}

	default:
		if provider.NeedsAPIKey(prov.ID) && prov.APIKey == "" {
			envHint := settings.EnvAPIKey
			if name := settings.EnvVarForProvider(prov.ID); name != "" {
				envHint += " or " + name
			}
			return fmt.Errorf("provider '%s' requires an API key\n\n"+
				"Option 1: Store your API key:\n"+
				"  pofill auth login --provider %s\n\n"+
				"Option 2: Pass key directly:\n"+
				"  --api-key YOUR_KEY or export %s=YOUR_KEY",
				prov.ID, prov.ID, envHint)
		}
	}

	return provider.Validate(prov)
}

func runTranslate(cmd *cobra.Command, o *translateOptions) error {
	cfg, err := loadTranslateConfig(cmd.Flags(), o)
	if err != nil {
		return err
	}

	key, source := settings.ResolveAPIKey(cfg.Provider, o.apiKey)
	prov := resolveProvider(cfg, key)

	var completer translate.Completer
	if !o.dryRun {
		if err := validateProvider(prov); err != nil {
			return err
		}
		if completer, err = provider.New(prov); err != nil {
			return err
		}
		logger.Info().Str("provider", prov.Name).Str("model", prov.Model).Str("key", source).Msg("using provider")
	}

	for _, lang := range cfg.Languages {
		logger.Info().Str("lang", lang).Str("name", config.LanguageName(lang)).Msg("target language")
	}

	opts := translate.Options{
		Languages:      cfg.Languages,
		FolderLanguage: cfg.FolderLanguage,
		Select: translate.SelectOptions{
			RefreshAll:  cfg.RefreshAll,
			FixNewlines: cfg.FixNewlines,
			FixBraces:   cfg.FixBraces,
		},
		StripFuzzy:   cfg.Fuzzy,
		AcceptFailed: cfg.AcceptFailed,
		DryRun:       o.dryRun,
		Logger:       logger,
	}
	if o.progress && !o.dryRun {
		opts.OnProgress = newProgressReporter(cmd.ErrOrStderr())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sum := translate.NewProcessor(completer, opts).Run(ctx, cfg.Folders)
	printSummary(cmd.OutOrStdout(), sum, o.dryRun)

	if ctx.Err() != nil {
		logger.Warn().Msg("interrupted")
	}
	if sum.HasErrors() {
		return errFilesFailed
	}
	return nil
}

// newProgressReporter returns an OnProgress callback drawing one bar per
// catalog on w.
func newProgressReporter(w io.Writer) func(path string, done, total int) {
	var bar *progressbar.ProgressBar
	return func(path string, done, total int) {
		if done == 0 || bar == nil {
			desc := filepath.Base(path)
			theme := progressbar.Theme{Saucer: "=", SaucerHead: ">", SaucerPadding: " ", BarStart: "[", BarEnd: "]"}
			if !color.NoColor {
				desc = "[cyan]" + desc + "[reset]"
				theme.Saucer, theme.SaucerHead = "[green]=[reset]", "[green]>[reset]"
			}
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(!color.NoColor),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(desc),
				progressbar.OptionSetTheme(theme),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
			)
		}
		if done > 0 {
			_ = bar.Set(done)
		}
	}
}

// printSummary writes one line per catalog and the run totals.
func printSummary(w io.Writer, sum translate.Summary, dryRun bool) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold(i18n.T("Summary")))
	for _, r := range sum.Files {
		switch r.Status {
		case translate.StatusDone:
			var detail string
			if dryRun {
				detail = fmt.Sprintf(i18n.N("%d entry would be translated", "%d entries would be translated", r.Selected), r.Selected)
			} else {
				detail = i18n.F("%d of %d translated", r.Translated, r.Selected)
				if r.Failed > 0 {
					detail += ", " + red(i18n.F("%d failed", r.Failed))
				}
			}
			fmt.Fprintf(w, "  %s %s [%s] %s\n", green("✓"), r.Path, r.Language, detail)
		case translate.StatusSkipped:
			fmt.Fprintf(w, "  %s %s %s\n", yellow("-"), r.Path, i18n.T("skipped: language not requested"))
		case translate.StatusError:
			fmt.Fprintf(w, "  %s %s %v\n", red("✗"), r.Path, r.Err)
		}
	}

	done, skipped, failed := sum.Counts()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s, %s, %s\n",
		bold(i18n.T("Files:")),
		green(i18n.F("%d done", done)),
		yellow(i18n.F("%d skipped", skipped)),
		red(i18n.F("%d failed", failed)))

	selected, translated, failedEntries := sum.Entries()
	if dryRun {
		fmt.Fprintf(w, "%s %s\n", bold(i18n.T("Entries:")),
			fmt.Sprintf(i18n.N("%d entry would be translated", "%d entries would be translated", selected), selected))
		return
	}
	fmt.Fprintf(w, "%s %s, %s\n",
		bold(i18n.T("Entries:")),
		green(i18n.F("%d of %d translated", translated, selected)),
		red(i18n.F("%d failed", failedEntries)))
}
