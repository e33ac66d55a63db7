package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pikabook/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "pikabook",
	Short: "Pikabook CLI - turn photographed Chinese text into study notes",
	Long: `Pikabook CLI imports photographed Chinese text and turns it into
bilingual study notes: OCR extracts the text, a cleaning and segmentation
pass splits it into sentences, and an LLM adds translations and pinyin.

Notes, flashcards and dictionary lookups are stored locally in SQLite;
processed artifacts are cached so reprocessing a page is free.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Pikabook CLI executed")

		fmt.Println("Welcome to Pikabook!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("user", "local", "User ID owning the notes")
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

// currentUser resolves the --user flag, shared by every subcommand.
func currentUser(cmd *cobra.Command) string {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = "local"
	}
	return user
}
