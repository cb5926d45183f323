package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/pofill/i18n"
	"github.com/minios-linux/pofill/provider"
	"github.com/minios-linux/pofill/settings"
)

// ---------------------------------------------------------------------------
// auth (login / logout / list)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: i18n.T("Manage provider API keys"),
		Long: i18n.T(`Manage API keys stored in the pofill credential store.

API key providers:
  openai         OpenAI Platform
  groq           Groq Cloud (free tier available)
  google         Google AI Studio (Gemini API key)
  anthropic      Anthropic Console
  custom-openai  Custom OpenAI-compatible endpoint (URL + optional key)

No auth required:
  ollama         Local Ollama server

Examples:
  pofill auth login --provider openai      Store an OpenAI API key
  pofill auth logout --provider groq       Remove the Groq API key
  pofill auth logout --all                 Remove all credentials
  pofill auth list                         Show all stored credentials`),
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// providerHelp holds where to obtain a key for each provider.
var providerHelp = map[string]string{
	provider.ProviderOpenAI:    "https://platform.openai.com/api-keys",
	provider.ProviderGroq:      "https://console.groq.com/keys",
	provider.ProviderGoogle:    "https://aistudio.google.com/apikey",
	provider.ProviderAnthropic: "https://console.anthropic.com/settings/keys",
}

func completeAuthProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	defaults := provider.DefaultProviders()
	out := make([]string, 0, len(defaults))
	for _, id := range provider.IDs() {
		if id == provider.ProviderOllama {
			continue
		}
		out = append(out, id+"\t"+defaults[id].Name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func newAuthLoginCmd() *cobra.Command {
	var providerID, apiKey, baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: i18n.T("Store an API key for a provider"),
		Long: i18n.T(`Store an API key for a provider in the credential store.

The key is read from standard input unless --api-key is given. For
custom-openai the endpoint URL is stored as well.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return authLogin(cmd.InOrStdin(), cmd.ErrOrStderr(), providerID, apiKey, baseURL)
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", i18n.T("Provider to authenticate"))
	cmd.Flags().StringVar(&apiKey, "api-key", "", i18n.T("API key (prompted when omitted)"))
	cmd.Flags().StringVar(&baseURL, "base-url", "", i18n.T("Endpoint URL (custom-openai)"))
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.RegisterFlagCompletionFunc("provider", completeAuthProviders)

	return cmd
}

// authLogin stores a credential. Missing values are prompted on out and
// read from in.
func authLogin(in io.Reader, out io.Writer, providerID, key, baseURL string) error {
	prov, ok := provider.DefaultProviders()[providerID]
	if !ok {
		return fmt.Errorf("unknown provider '%s' (available: %s)", providerID, strings.Join(provider.IDs(), ", "))
	}
	if providerID == provider.ProviderOllama {
		fmt.Fprintln(out, i18n.T("Ollama runs locally and needs no API key."))
		return nil
	}

	blue := color.New(color.FgBlue).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(out, "\n%s\n", blue(i18n.F("%s API Key Setup", prov.Name)))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	if url := providerHelp[providerID]; url != "" {
		fmt.Fprintf(out, "  %s %s\n", i18n.T("Get your API key from:"), green(url))
	}
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	readLine := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("reading input: %w", err)
			}
			return "", errors.New("no input received")
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	existing := settings.Get(providerID)
	if existing == nil {
		existing = &settings.Info{}
	}

	if providerID == provider.ProviderCustomOpenAI && baseURL == "" {
		if existing.BaseURL != "" {
			fmt.Fprintf(out, "  %s %s\n", i18n.T("Current endpoint:"), yellow(existing.BaseURL))
			fmt.Fprint(out, "  "+i18n.T("Enter new endpoint URL, or press Enter to keep: "))
		} else {
			fmt.Fprint(out, "  "+i18n.T("Enter endpoint URL (e.g., https://api.example.com/v1): "))
		}
		line, err := readLine()
		if err != nil {
			return err
		}
		baseURL = line
		if baseURL == "" {
			baseURL = existing.BaseURL
		}
		if baseURL == "" {
			return errors.New("endpoint URL is required for custom-openai")
		}
	}

	if key == "" {
		if existing.Key != "" {
			fmt.Fprintf(out, "  %s %s\n", i18n.T("Current key:"), yellow(settings.MaskKey(existing.Key)))
			fmt.Fprint(out, "  "+i18n.T("Enter new key to replace, or press Enter to keep: "))
		} else {
			fmt.Fprint(out, "  "+i18n.T("Enter API key: "))
		}
		line, err := readLine()
		if err != nil {
			return err
		}
		key = line
		if key == "" {
			key = existing.Key
		}
		if key == "" && provider.NeedsAPIKey(providerID) {
			return errors.New("no API key provided")
		}
	}

	if err := settings.Set(providerID, key, baseURL); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Fprintf(out, "\n%s %s\n", green("[OK]"), i18n.F("%s credentials saved to %s", prov.Name, settings.FilePath()))
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var (
		providerID string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "logout",
		Short: i18n.T("Remove stored credentials"),
		Long: i18n.T(`Remove stored credentials for one provider, or for all with --all.

Examples:
  pofill auth logout --provider openai
  pofill auth logout --all`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return authLogout(cmd.ErrOrStderr(), providerID, all)
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", i18n.T("Provider to log out"))
	cmd.Flags().BoolVar(&all, "all", false, i18n.T("Remove the credentials of every provider"))
	cmd.MarkFlagsMutuallyExclusive("provider", "all")
	cmd.MarkFlagsOneRequired("provider", "all")
	_ = cmd.RegisterFlagCompletionFunc("provider", completeAuthProviders)

	return cmd
}

func authLogout(out io.Writer, providerID string, all bool) error {
	green := color.New(color.FgGreen).SprintFunc()

	if all {
		if err := settings.RemoveAll(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", green("[OK]"), i18n.T("All stored credentials removed"))
		return nil
	}

	if _, ok := provider.DefaultProviders()[providerID]; !ok {
		return fmt.Errorf("unknown provider '%s'. Run 'pofill auth list' to see providers", providerID)
	}
	if err := settings.Remove(providerID); err != nil {
		return fmt.Errorf("removing %s credentials: %w", providerID, err)
	}
	fmt.Fprintf(out, "%s %s\n", green("[OK]"), i18n.F("%s credentials removed", providerID))
	return nil
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   i18n.T("Show stored credentials and status"),
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			authList(cmd.OutOrStdout())
		},
	}
}

// authList prints the credential status of every provider.
func authList(out io.Writer) {
	blue := color.New(color.FgBlue).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	store := settings.Load()

	fmt.Fprintf(out, "\n%s\n", blue(i18n.T("Stored Credentials")))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "  %s\n\n", settings.FilePath())

	for _, id := range provider.IDs() {
		if id == provider.ProviderOllama {
			fmt.Fprintf(out, "  %-14s %s\n", id, i18n.T("no auth needed"))
			continue
		}
		entry := store[id]
		switch {
		case entry != nil && entry.Key != "":
			fmt.Fprintf(out, "  %-14s %s (%s)\n", id, green(i18n.T("configured")), i18n.F("key: %s", settings.MaskKey(entry.Key)))
		case entry != nil && entry.BaseURL != "":
			fmt.Fprintf(out, "  %-14s %s (%s)\n", id, green(i18n.T("configured")), i18n.T("no key"))
		default:
			fmt.Fprintf(out, "  %-14s %s\n", id, red(i18n.T("not configured")))
		}
		if entry != nil && entry.BaseURL != "" {
			fmt.Fprintf(out, "  %14s %s\n", "", i18n.F("endpoint: %s", entry.BaseURL))
		}
	}

	fmt.Fprintf(out, "\n  %s\n", yellow(i18n.T("Environment Variables")))
	vars := []string{settings.EnvAPIKey}
	for _, id := range provider.IDs() {
		if name := settings.EnvVarForProvider(id); name != "" {
			vars = append(vars, name)
		}
	}
	for _, name := range vars {
		if v := os.Getenv(name); v != "" {
			fmt.Fprintf(out, "  %-18s %s\n", name+":", green(settings.MaskKey(v)))
		} else {
			fmt.Fprintf(out, "  %-18s %s\n", name+":", red(i18n.T("not set")))
		}
	}
	fmt.Fprintln(out)
}
