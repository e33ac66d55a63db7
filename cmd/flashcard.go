package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pikabook/internal/dictionary"
	"pikabook/internal/llm"
	"pikabook/pkg/models"
)

var flashcardCmd = &cobra.Command{
	Use:     "flashcard",
	Aliases: []string{"card"},
	Short:   "Manage flashcards",
}

var flashcardAddCmd = &cobra.Command{
	Use:   "add [word]",
	Short: "Create a flashcard from a dictionary lookup",
	Long: `Create a flashcard for a Chinese word. The back and pinyin are filled
from the dictionary (local first, LLM fallback), or can be given explicitly
with --back and --pinyin. Use --note to attach the card to a note.`,
	Example: `  # Card from a dictionary lookup, attached to a note
  pikabook flashcard add 经济 --note 7f9c2a1e-...

  # Standalone card with an explicit back
  pikabook flashcard add 经济 --back "economy"`,
	Args: cobra.ExactArgs(1),
	RunE: runFlashcardAdd,
}

var flashcardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flashcards, optionally for one note",
	RunE:  runFlashcardList,
}

var flashcardReviewCmd = &cobra.Command{
	Use:   "review [card-id]",
	Short: "Record a review of a flashcard",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlashcardReview,
}

var flashcardDeleteCmd = &cobra.Command{
	Use:   "delete [card-id]",
	Short: "Delete a flashcard",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlashcardDelete,
}

func init() {
	rootCmd.AddCommand(flashcardCmd)
	flashcardCmd.AddCommand(flashcardAddCmd)
	flashcardCmd.AddCommand(flashcardListCmd)
	flashcardCmd.AddCommand(flashcardReviewCmd)
	flashcardCmd.AddCommand(flashcardDeleteCmd)

	flashcardAddCmd.Flags().String("note", "", "Note ID to attach the card to")
	flashcardAddCmd.Flags().String("back", "", "Back of the card (skips the dictionary)")
	flashcardAddCmd.Flags().String("pinyin", "", "Pinyin for the front")
	flashcardListCmd.Flags().String("note", "", "Only cards of this note")
}

func runFlashcardAdd(cmd *cobra.Command, args []string) error {
	noteID, _ := cmd.Flags().GetString("note")
	back, _ := cmd.Flags().GetString("back")
	pinyin, _ := cmd.Flags().GetString("pinyin")
	word := args[0]
	userID := currentUser(cmd)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if back == "" || pinyin == "" {
		entry, err := lookupWord(ctx, application, userID, word)
		if err != nil && back == "" {
			return fmt.Errorf("no definition for %q: %w (use --back to set one)", word, err)
		}
		if entry != nil {
			if back == "" {
				back = entry.Meaning
			}
			if pinyin == "" {
				pinyin = entry.Pinyin
			}
		}
	}

	card := &models.FlashCard{
		ID:     uuid.NewString(),
		UserID: userID,
		NoteID: noteID,
		Front:  word,
		Back:   back,
		Pinyin: pinyin,
	}
	if err := application.store.CreateFlashcard(ctx, card); err != nil {
		return err
	}

	fmt.Printf("Flashcard created: %s\n", card.ID)
	fmt.Printf("  %s [%s] %s\n", card.Front, card.Pinyin, card.Back)
	return nil
}

func runFlashcardList(cmd *cobra.Command, args []string) error {
	noteID, _ := cmd.Flags().GetString("note")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	cards, err := application.store.ListFlashcards(ctx, currentUser(cmd), noteID)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Println("No flashcards.")
		return nil
	}

	for _, card := range cards {
		reviewed := "never"
		if card.LastReviewedAt != nil {
			reviewed = card.LastReviewedAt.Format("2006-01-02")
		}
		fmt.Printf("%s  %-12s [%s] %-24s reviews:%d last:%s\n",
			card.ID, card.Front, card.Pinyin, truncate(card.Back, 24),
			card.ReviewCount, reviewed)
	}
	return nil
}

func runFlashcardReview(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.store.RecordReview(ctx, args[0], time.Now()); err != nil {
		return err
	}
	card, err := application.store.GetFlashcard(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Reviewed %s (%d reviews).\n", card.Front, card.ReviewCount)
	return nil
}

func runFlashcardDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.store.DeleteFlashcard(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Flashcard deleted.")
	return nil
}

// lookupWord builds a dictionary service with whatever LLM is available and
// resolves the word. A missing definition is reported, not fatal.
func lookupWord(ctx context.Context, application *app, userID, word string) (*models.DictionaryEntry, error) {
	llmSvc, err := llm.NewService(ctx)
	if err != nil {
		llmSvc = nil
	}
	dict := dictionary.NewService(application.store, llmSvc, application.cache)

	entry, err := dict.Lookup(ctx, userID, word)
	if err != nil {
		if errors.Is(err, dictionary.ErrWordNotFound) {
			return nil, dictionary.ErrWordNotFound
		}
		return nil, err
	}
	return entry, nil
}
