package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"talkvid/internal/avgraph"
	"talkvid/internal/talk"
)

func newGraphCommand(ctx *commandContext) *cobra.Command {
	var table bool
	cmd := &cobra.Command{
		Use:   "graph MANIFEST",
		Short: "Print the ffmpeg filter script for a talk without rendering it",
		Long: "Composes the talk like `make` does (template slides are still rasterized and\n" +
			"inputs probed, both through the cache) and prints the resulting filter graph.",
		Args: cobra.ExactArgs(1),
	}
	overrides := bindManifestOverrides(cmd)
	cmd.Flags().BoolVar(&table, "table", false, "Show the graph as a table of filters")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := ctx.ensureServices(); err != nil {
			return err
		}
		m, err := overrides.load(cmd, args[0], ctx.config.Render.FPS)
		if err != nil {
			return err
		}
		obj, err := talk.Build(ctx.runContext(cmd), ctx.talkEnv(), m)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if table {
			rendered, err := avgraph.Describe(obj)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, rendered)
			return nil
		}
		script, err := avgraph.Compile(obj)
		if err != nil {
			return err
		}
		fmt.Fprint(out, script.String())
		fmt.Fprintf(out, "# output key %s\n", obj.Key())
		return nil
	}
	return cmd
}
