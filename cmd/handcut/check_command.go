package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"handcut/internal/preflight"
	"handcut/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var opts preflight.Options

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check binaries, directories, storage and the vision API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, opts)

			columns := []column{{title: "Check"}, {title: "Status"}, {title: "Detail"}}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				switch {
				case !r.Passed && r.Optional:
					status = "warn"
				case !r.Passed:
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(columns, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "preflight", "", fmt.Sprintf("%d check(s) failed", len(failed)), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.SkipLLM, "skip-llm", false, "Skip the vision API check")
	cmd.Flags().BoolVar(&opts.SkipStorage, "skip-storage", false, "Skip the storage check")
	return cmd
}
