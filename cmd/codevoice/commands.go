package main

import (
	"bufio"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/codevoice/internal/api"
	"github.com/kalambet/codevoice/internal/config"
	"github.com/kalambet/codevoice/internal/intent"
	"github.com/kalambet/codevoice/internal/session"
	"github.com/kalambet/codevoice/internal/tone"
)

// --- voice ---

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Explain Selected Code: Voice Mode",
	Long: `Open a voice session for a code selection.

The selection comes from --file (optionally narrowed with --lines) or from
stdin. Without --tone, a picker is shown for file selections; stdin
selections use session.default_tone.

Examples:
  codevoice voice --file main.go --lines 10-42
  codevoice voice --file main.go --tone mentor --open
  pbpaste | codevoice voice --tone casual`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		lines, _ := cmd.Flags().GetString("lines")
		toneFlag, _ := cmd.Flags().GetString("tone")
		open, _ := cmd.Flags().GetBool("open")

		code, err := readSelection(file, lines, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if strings.TrimSpace(code) == "" {
			return errNoSelection
		}

		toneName, err := resolveTone(toneFlag, file != "", cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/sessions", api.CreateSessionRequest{
			Code: code,
			Tone: toneName,
			File: file,
		})
		if err != nil {
			return err
		}

		var created api.CreateSessionResponse
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}

		printSuccess("Voice session %s ready (%s)", created.ID, created.Tone)
		printHint("Open the page below, allow the microphone and ask about your code")
		fmt.Fprintln(cmd.OutOrStdout(), created.SurfaceURL)

		if open {
			if err := openBrowser(created.SurfaceURL); err != nil {
				printWarning("could not open a browser: %v", err)
			}
		}
		return nil
	},
}

// resolveTone returns the tone name to send to the daemon. An empty name
// defers to the daemon's default tone.
func resolveTone(flag string, canPrompt bool, cmd *cobra.Command) (string, error) {
	if flag != "" {
		t, err := tone.Match(flag)
		if err != nil {
			return "", err
		}
		return t.Name, nil
	}
	if !canPrompt {
		return "", nil
	}
	t, err := pickTone(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return t.Name, nil
}

func openBrowser(url string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	return c.Start()
}

func init() {
	for _, c := range []*cobra.Command{voiceCmd, explainCmd} {
		c.Flags().String("file", "", "file containing the code")
		c.Flags().String("lines", "", "line range within --file, e.g. 10-42")
		c.Flags().String("tone", "", "tone name or prefix (Casual, Mentor, Professional)")
	}
	voiceCmd.Flags().Bool("open", false, "open the voice page in the default browser")
}

// --- explain ---

var explainCmd = &cobra.Command{
	Use:   "explain <phrase...>",
	Short: "One-shot explanation of a selection, printed to stdout",
	Long: `Ask a single question about a code selection.

Examples:
  codevoice explain --file main.go --lines 1-20 --tone pro "how can I optimize this"
  cat util.go | codevoice explain --tone mentor what does this do`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		lines, _ := cmd.Flags().GetString("lines")
		toneFlag, _ := cmd.Flags().GetString("tone")

		code, err := readSelection(file, lines, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if strings.TrimSpace(code) == "" {
			return errNoSelection
		}

		toneName, err := resolveTone(toneFlag, false, cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/explain", api.ExplainRequest{
			Phrase: strings.Join(args, " "),
			Code:   code,
			Tone:   toneName,
		})
		if err != nil {
			return err
		}

		var result session.Response
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printField("Action", "%s (%s)", result.Action, result.Tone)
		fmt.Fprintln(cmd.OutOrStdout(), result.Text)
		return nil
	},
}

// --- close ---

var closeCmd = &cobra.Command{
	Use:   "close <session-id>",
	Short: "End a voice session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/v1/sessions/"+args[0])
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Closed session %s", args[0])
		return nil
	},
}

// --- catalogs ---

var tonesCmd = &cobra.Command{
	Use:   "tones",
	Short: "List the available tones",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, t := range tone.All() {
			fmt.Fprintf(out, "%s  %s\n", styleBold.apply(fmt.Sprintf("%-12s", t.Name)), t.Description)
		}
		return nil
	},
}

var intentsCmd = &cobra.Command{
	Use:   "intents",
	Short: "List the intent catalog used to classify questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		catalog, err := intent.Load(cfg.Catalog.IntentsPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, in := range catalog.Intents() {
			fmt.Fprintf(out, "%s  %s\n", styleCyan.apply(fmt.Sprintf("%-10s", in.Name)), in.Description)
			fmt.Fprintf(out, "            keywords: %s\n", strings.Join(in.Keywords, ", "))
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# stored in %s; CODEVOICE_* variables override\n", config.Location())
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s\n", styleBold.apply(k.Key), k.Value)
		}
		if _, err := config.APIKeySource()(); err != nil {
			fmt.Fprintf(out, "  %s = %s\n", styleBold.apply("api_key"), "(not set)")
		} else {
			fmt.Fprintf(out, "  %s = %s\n", styleBold.apply("api_key"), "(set)")
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored value so its default applies again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [api-key]",
	Short: "Store the completion service API key in the platform secret store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading API key: %w", err)
			}
			key = line
		}

		if err := config.SetAPIKey(key); err != nil {
			return err
		}

		printSuccess("API key stored")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configSetKeyCmd)
}
