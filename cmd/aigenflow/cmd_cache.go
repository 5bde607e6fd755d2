package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aigenflow/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count, size, and hit rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := cache.NewManager(cfg.Cache.Dir, cfg.CacheTTL(), cfg.Cache.MaxSizeBytes)
		if err != nil {
			return err
		}
		stats := mgr.Store().RecomputeStats()
		fmt.Printf("entries:  %d\n", stats.TotalEntries)
		fmt.Printf("size:     %.1f MiB\n", float64(stats.TotalSizeBytes)/(1024*1024))
		fmt.Printf("hits:     %d\n", stats.HitCount)
		fmt.Printf("misses:   %d\n", stats.MissCount)
		fmt.Printf("hit rate: %.1f%%\n", stats.HitRate*100)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := cache.NewManager(cfg.Cache.Dir, cfg.CacheTTL(), cfg.Cache.MaxSizeBytes)
		if err != nil {
			return err
		}
		if err := mgr.Store().Clear(); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
