package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var dictCmd = &cobra.Command{
	Use:   "dict [word]",
	Short: "Look up a Chinese word",
	Long: `Look up a word in the dictionary. Local entries are served directly;
unknown words fall back to the LLM and the result is saved, so the next
lookup is local. Lookups are cached per user.`,
	Example: `  pikabook dict 经济
  pikabook dict 图书馆`,
	Args: cobra.ExactArgs(1),
	RunE: runDict,
}

func init() {
	rootCmd.AddCommand(dictCmd)
}

func runDict(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	entry, err := lookupWord(ctx, application, currentUser(cmd), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s [%s]\n", entry.Word, entry.Pinyin)
	fmt.Printf("  %s\n", entry.Meaning)
	fmt.Printf("  source: %s\n", entry.Source)
	return nil
}
