package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "codevoice",
	Short: "Talk to your code: spoken questions, spoken explanations",
	Long: `codevoice explains selected code in response to spoken or typed questions.

Start the daemon with "codevoice start", then run "codevoice voice --file main.go"
to open a voice session for a selection.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(voiceCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(tonesCmd)
	rootCmd.AddCommand(intentsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
