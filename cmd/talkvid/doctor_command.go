package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"talkvid/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and the cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := false

			fmt.Fprintln(out, renderSectionHeader("Tools", colorize))
			statuses := deps.CheckBinaries(cmd.Context(), deps.Requirements(cfg))
			for _, s := range statuses {
				switch {
				case !s.Available && s.Optional:
					fmt.Fprintln(out, renderStatusLine(s.Name, statusWarn, s.Detail, colorize))
				case !s.Available:
					failed = true
					fmt.Fprintln(out, renderStatusLine(s.Name, statusError, s.Detail, colorize))
				case s.Detail != "":
					fmt.Fprintln(out, renderStatusLine(s.Name, statusWarn, s.Detail, colorize))
				default:
					fmt.Fprintln(out, renderStatusLine(s.Name, statusOK, s.Version, colorize))
				}
			}

			fmt.Fprintln(out, renderSectionHeader("Cache", colorize))
			if err := checkWritable(cfg.Paths.CacheDir); err != nil {
				failed = true
				fmt.Fprintln(out, renderStatusLine("Directory", statusError, err.Error(), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Directory", statusOK, cfg.Paths.CacheDir, colorize))
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			if stats, err := store.Stats(cmd.Context()); err != nil {
				fmt.Fprintln(out, renderStatusLine("Free space", statusWarn, err.Error(), colorize))
			} else if stats.TotalFSBytes > 0 {
				kind := statusOK
				if stats.FreeRatio < 0.05 {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Free space", kind,
					fmt.Sprintf("%s (%.0f%%), %d artifacts cached", formatBytes(stats.FreeBytes), stats.FreeRatio*100, stats.Entries), colorize))
			}

			if failed {
				missing := deps.Missing(statuses)
				if len(missing) > 0 {
					return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
				}
				return errors.New("environment check failed")
			}
			return nil
		},
	}
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(filepath.Clean(name))
}
