package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the processing cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts per tier",
	RunE:  runCacheStats,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every cached artifact of the current user",
	Long: `Drop all cached entries belonging to the user given with --user, in
both the memory and the persistent tier. Notes and flashcards are not
touched; purged pages are simply recomputed on their next access.`,
	RunE: runCachePurge,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	memoryLen, persistentLen, err := application.cache.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Memory tier:     %d entries\n", memoryLen)
	fmt.Printf("Persistent tier: %d entries\n", persistentLen)
	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	userID := currentUser(cmd)
	dropped, err := application.cache.PurgeUser(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("Dropped %d cached entries for user %s.\n", dropped, userID)
	return nil
}
