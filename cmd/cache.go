package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardforge/cardforge/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  `Commands for managing the downloaded artwork and bleed render cache.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache entry count and total size",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		ctx := cmd.Context()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := store.Len(ctx)
		if err != nil {
			return fmt.Errorf("count cache entries: %w", err)
		}
		size, err := store.Size(ctx)
		if err != nil {
			return fmt.Errorf("measure cache size: %w", err)
		}

		fmt.Printf("Backend: %s\n", cfg.Cache.Backend)
		fmt.Printf("Entries: %d\n", count)
		fmt.Printf("Size:    %.1f MiB\n", float64(size)/(1024*1024))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached artwork and renders",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		ctx := cmd.Context()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(ctx); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Println("Cache cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
