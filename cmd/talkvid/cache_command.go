package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"talkvid/internal/artifact"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the artifact cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	return cacheCmd
}

func (c *commandContext) openStore() (*artifact.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return artifact.Open(cfg.Paths.CacheDir, cfg.Cache.SmallFileBytes, nil), nil
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize cache size and free space",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:       %s\n", stats.Root)
			fmt.Fprintf(out, "Artifacts:   %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:        %s\n", formatBytes(uint64(stats.TotalBytes)))
			if stats.TotalFSBytes > 0 {
				fmt.Fprintf(out, "Free space:  %s of %s (%.0f%%)\n",
					formatBytes(stats.FreeBytes), formatBytes(stats.TotalFSBytes), stats.FreeRatio*100)
			}
			if len(stats.Extensions) == 0 {
				return nil
			}
			exts := make([]string, 0, len(stats.Extensions))
			for ext := range stats.Extensions {
				exts = append(exts, ext)
			}
			sort.Strings(exts)
			rows := make([][]string, 0, len(exts))
			for _, ext := range exts {
				label := ext
				if label == "" {
					label = "(none)"
				}
				rows = append(rows, []string{label, strconv.Itoa(stats.Extensions[ext])})
			}
			fmt.Fprintln(out, renderTable([]string{"Kind", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List cached artifacts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}
			var total int64
			for _, e := range entries {
				total += e.SizeBytes
			}
			count := len(entries)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Key", "Kind", "Size", "Modified"},
				entryRows(entries),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				fmt.Sprintf("%d artifacts", count), "", formatBytes(uint64(total)), "",
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many entries")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm HASH_PREFIX...",
		Short: "Remove artifacts so they are rebuilt on the next run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, prefix := range args {
				removed, err := store.Remove(prefix)
				if err != nil {
					return err
				}
				if len(removed) == 0 {
					fmt.Fprintf(out, "No artifacts match %s\n", prefix)
					continue
				}
				for _, e := range removed {
					fmt.Fprintf(out, "Removed %s (%s)\n", e.Name, formatBytes(uint64(e.SizeBytes)))
				}
			}
			return nil
		},
	}
}

func entryRows(entries []artifact.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			shortKey(e.Key),
			strings.TrimPrefix(e.Ext, "."),
			formatBytes(uint64(e.SizeBytes)),
			e.ModifiedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func shortKey(key string) string {
	if len(key) > 16 {
		return key[:16]
	}
	return key
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
