package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"handcut/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the newest run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			keep := logs.RunFilter(runID)
			path := ""
			if runID != "" {
				path, err = findRunLog(cfg.Paths.LogDir, keep)
			} else {
				path, err = logs.Latest(cfg.Paths.LogDir)
			}
			if err != nil {
				return err
			}

			tail, offset, err := logs.Last(path, lines, keep)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 250*time.Millisecond, keep, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines of this run id")
	return cmd
}

// findRunLog returns the newest run log holding a line that passes keep.
func findRunLog(dir string, keep func(string) bool) (string, error) {
	paths, err := logs.RunLogs(dir)
	if err != nil {
		return "", err
	}
	for _, path := range paths {
		matched, _, err := logs.Last(path, 1, keep)
		if err != nil {
			return "", err
		}
		if len(matched) > 0 {
			return path, nil
		}
	}
	return "", logs.ErrNoLogs
}
