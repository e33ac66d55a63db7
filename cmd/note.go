package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently updated first",
	RunE:  runNoteList,
}

var noteShowCmd = &cobra.Command{
	Use:   "show [note-id]",
	Short: "Show a note with its pages",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteShow,
}

var noteFavoriteCmd = &cobra.Command{
	Use:   "favorite [note-id]",
	Short: "Mark or unmark a note as favorite",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteFavorite,
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete [note-id]",
	Short: "Delete a note and its pages, flashcards and cached artifacts",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteDelete,
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteShowCmd)
	noteCmd.AddCommand(noteFavoriteCmd)
	noteCmd.AddCommand(noteDeleteCmd)

	noteFavoriteCmd.Flags().Bool("off", false, "Remove the favorite mark")
	noteShowCmd.Flags().Bool("pinyin", false, "Include pinyin lines")
}

func runNoteList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	notes, err := application.store.ListNotes(ctx, currentUser(cmd))
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Println("No notes yet. Create one with \"pikabook import\".")
		return nil
	}

	for _, note := range notes {
		marker := " "
		if note.Favorite {
			marker = "*"
		}
		title := note.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s %s  %-30s  pages:%d cards:%d  %s\n",
			marker, note.ID, truncate(title, 30), note.PageCount, note.FlashcardCount,
			note.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runNoteShow(cmd *cobra.Command, args []string) error {
	showPinyin, _ := cmd.Flags().GetBool("pinyin")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	note, err := application.store.GetNote(ctx, args[0])
	if err != nil {
		return err
	}
	pages, err := application.store.ListPages(ctx, note.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Note: %s\n", note.ID)
	fmt.Printf("Title: %s\n", note.Title)
	fmt.Printf("Pages: %d  Flashcards: %d  Favorite: %v\n\n",
		note.PageCount, note.FlashcardCount, note.Favorite)

	for _, page := range pages {
		fmt.Printf("--- Page %d [%s] %s\n", page.Ordinal+1, page.Status, page.ID)
		if page.Error != "" {
			fmt.Printf("    error: %s\n", page.Error)
			continue
		}
		original := strings.Split(page.OriginalText, "\n")
		translated := strings.Split(page.TranslatedText, "\n")
		pinyin := strings.Split(page.Pinyin, "\n")
		for i, line := range original {
			fmt.Printf("  %s\n", line)
			if showPinyin && i < len(pinyin) && pinyin[i] != "" {
				fmt.Printf("  %s\n", pinyin[i])
			}
			if i < len(translated) && translated[i] != "" {
				fmt.Printf("  %s\n", translated[i])
			}
		}
		fmt.Println()
	}
	return nil
}

func runNoteFavorite(cmd *cobra.Command, args []string) error {
	off, _ := cmd.Flags().GetBool("off")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.store.SetNoteFavorite(ctx, args[0], !off); err != nil {
		return err
	}
	if off {
		fmt.Println("Favorite removed.")
	} else {
		fmt.Println("Marked as favorite.")
	}
	return nil
}

func runNoteDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	noteID := args[0]
	userID := currentUser(cmd)

	if err := application.store.DeleteNote(ctx, noteID); err != nil {
		return err
	}
	if dropped, err := application.cache.InvalidateNote(ctx, userID, noteID); err != nil {
		application.log.Warn().Err(err).Msg("Failed to invalidate note cache")
	} else if dropped > 0 {
		application.log.Info().Int("entries", dropped).Msg("Dropped cached artifacts")
	}
	fmt.Println("Note deleted.")
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
