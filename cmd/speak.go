package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pikabook/internal/tts"
)

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Synthesize speech for Chinese text",
	Long: `Synthesize an MP3 clip for the given text, or for a stored page with
--page. Clips are content-addressed under the audio cache directory, so the
same text is only ever synthesized once.

Requires OPENAI_API_KEY.`,
	Example: `  # Speak a phrase
  pikabook speak 你好，世界

  # Speak a whole page
  pikabook speak --page 3c1d9e2b-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSpeak,
}

func init() {
	rootCmd.AddCommand(speakCmd)

	speakCmd.Flags().String("page", "", "Speak the original text of this page")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	pageID, _ := cmd.Flags().GetString("page")
	userID := currentUser(cmd)

	if pageID == "" && len(args) == 0 {
		return fmt.Errorf("give text to speak or --page")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	text := ""
	if pageID != "" {
		page, err := application.store.GetPage(ctx, pageID)
		if err != nil {
			return err
		}
		text = page.OriginalText
	} else {
		text = args[0]
	}

	speech, err := tts.NewService(application.cfg, application.cache)
	if err != nil {
		return err
	}

	clipPath, err := speech.Speak(ctx, userID, text)
	if err != nil {
		return err
	}

	fmt.Printf("Clip: %s\n", clipPath)
	return nil
}
