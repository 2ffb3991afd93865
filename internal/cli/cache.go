package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/polyreq/internal/cache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fetched-page cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired pages from the disk cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		removed, err := cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL).Prune()
		if err != nil {
			return fmt.Errorf("prune cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d expired pages from %s\n", removed, cfg.Cache.Dir)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every page from the disk cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL).Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s\n", cfg.Cache.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
