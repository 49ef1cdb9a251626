package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"talkvid/internal/avgraph"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync FIRST SECOND",
		Short: "Measure the time offset between two recordings of the same audio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureServices(); err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd)
			env := ctx.graphEnv()
			first, err := avgraph.Input(runCtx, env, args[0])
			if err != nil {
				return err
			}
			second, err := avgraph.Input(runCtx, env, args[1])
			if err != nil {
				return err
			}
			result, err := ctx.syncEngine().Align(runCtx, first, second)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Offset", fmt.Sprintf("%.3f s", result.Offset)},
				{"Intercept", fmt.Sprintf("%.2f frames", result.Intercept)},
				{"Slope", fmt.Sprintf("%.5f", result.Slope)},
				{"Correlation", fmt.Sprintf("%.5f", result.R)},
				{"Std. error", fmt.Sprintf("%.3g", result.StdErr)},
				{"Path pairs", fmt.Sprintf("%d (%d fitted)", result.Pairs, result.Samples)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Measure", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			switch {
			case result.Offset > 0:
				fmt.Fprintf(out, "%s starts %.3f s earlier; delay it to line up.\n", args[0], result.Offset)
			case result.Offset < 0:
				fmt.Fprintf(out, "%s starts %.3f s earlier; delay it to line up.\n", args[1], -result.Offset)
			default:
				fmt.Fprintln(out, "Recordings are already aligned.")
			}
			return nil
		},
	}
}
