package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"handcut/internal/timecode"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored detection runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored.")
				return nil
			}
			columns := []column{
				{title: "ID"},
				{title: "Finished"},
				{title: "Source"},
				{title: "Stream"},
				{title: "Length", right: true},
				{title: "Hands", right: true},
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.FinishedAt.Local().Format(time.DateTime),
					run.Source,
					run.StreamID,
					timecode.FormatTimestamp(run.DurationSeconds),
					fmt.Sprintf("%d", run.HandCount),
				})
			}
			fmt.Fprint(out, renderTable(columns, rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list, newest first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHandsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "hands <run-id>",
		Short: "Show the hand timecodes of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, run.Hands)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Source)
			if len(run.Hands) == 0 {
				fmt.Fprintln(out, "No hands recorded.")
				return nil
			}
			fmt.Fprint(out, renderHandTable(run.Hands))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the hand timecodes as JSON")
	return cmd
}
