package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"pikabook/internal/logger"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [note-id]",
	Short: "Translate the pending pages of a note",
	Long: `Run the translation phase for every page of a note that is still
waiting. Pages already completed are left untouched; cached results are
reused, so re-running enrich is cheap.`,
	Example: `  # Translate whatever is still pending on a note
  pikabook enrich 7f9c2a1e-...`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Operate on individual pages",
}

var pageRetryCmd = &cobra.Command{
	Use:   "retry [page-id]",
	Short: "Re-process a single page",
	Long: `Re-run a page through the pipeline. Failed pages are re-extracted from
their image before translating. Completed pages are skipped unless --force
is given, which also drops the cached result so everything is recomputed.`,
	Args: cobra.ExactArgs(1),
	RunE: runPageRetry,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(pageCmd)
	pageCmd.AddCommand(pageRetryCmd)

	enrichCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
	pageRetryCmd.Flags().Bool("force", false, "Re-process even if the page is completed")
	pageRetryCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("enrich")

	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	userID := currentUser(cmd)
	noteID := args[0]

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

	if err := pipeline.Enrich(ctx, userID, noteID); err != nil {
		return fmt.Errorf("enrich failed: %w", err)
	}
	fmt.Println("Enrichment complete.")
	return nil
}

func runPageRetry(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("page-retry")

	force, _ := cmd.Flags().GetBool("force")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	userID := currentUser(cmd)
	pageID := args[0]

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

	if err := pipeline.ProcessPage(ctx, userID, pageID, force); err != nil {
		return fmt.Errorf("page retry failed: %w", err)
	}
	fmt.Println("Page processed.")
	return nil
}
