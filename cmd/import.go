package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pikabook/internal/logger"
	"pikabook/pkg/models"
)

var importCmd = &cobra.Command{
	Use:   "import [image-files...]",
	Short: "Create a note from photographed pages",
	Long: `Import one or more page photos as a new note.

Each image is OCR'd, cleaned and segmented immediately, so the note and its
original text appear right away. Translation and pinyin run afterwards over
a worker pool; use --no-enrich to stop after the quick phase and run
"pikabook enrich" later.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  OPENAI_API_KEY - OpenAI key for the translation pass`,
	Example: `  # Import two pages and translate them
  pikabook import page1.jpg page2.jpg

  # Import only; translate later with "pikabook enrich"
  pikabook import --no-enrich page1.jpg

  # Import with a longer budget for many pages
  pikabook import --timeout 600 *.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("no-enrich", false, "Stop after OCR; skip translation")
	importCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")

	noEnrich, _ := cmd.Flags().GetBool("no-enrich")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	userID := currentUser(cmd)

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot read image %s: %w", path, err)
		}
		if info.Size() == 0 {
			return fmt.Errorf("image is empty: %s", path)
		}
	}

	ctx, cancel := commandContext(timeoutSecs, log)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	pipeline, err := application.buildWorkflow(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("images", len(args)).
		Str("user_id", userID).
		Msg("Starting import")

	note, err := pipeline.QuickCreate(ctx, userID, args)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Note created: %s\n", note.ID)
	if note.Title != "" {
		fmt.Printf("Title: %s\n", note.Title)
	}
	fmt.Printf("Pages: %d\n", note.PageCount)

	if noEnrich {
		fmt.Println("Skipping translation (--no-enrich); run \"pikabook enrich\" later.")
		return nil
	}

	if err := pipeline.Enrich(ctx, userID, note.ID); err != nil {
		// Pages that made it through are completed; the rest can be retried
		log.Warn().Err(err).Str("note_id", note.ID).Msg("Enrichment finished with failures")
		fmt.Printf("Some pages failed to translate: %v\n", err)
		fmt.Printf("Retry with: pikabook page retry <page-id>\n")
		return nil
	}

	pages, err := application.store.ListPages(ctx, note.ID)
	if err != nil {
		return err
	}
	completed := 0
	for _, page := range pages {
		if page.Status == models.StatusCompleted {
			completed++
		}
	}
	fmt.Printf("Translated %d/%d pages.\n", completed, len(pages))
	return nil
}
