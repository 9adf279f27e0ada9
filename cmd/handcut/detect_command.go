package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"handcut/internal/detection"
	"handcut/internal/logging"
	"handcut/internal/services"
	"handcut/internal/timecode"
	"handcut/internal/workflow"
)

type detectFlags struct {
	duration    float64
	streamID    string
	interval    float64
	threshold   float64
	minHand     float64
	maxHand     float64
	maxFrames   int
	concurrency int
	policy      string
	jsonOutput  bool
	noStore     bool
	skipChecks  bool
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var flags detectFlags

	cmd := &cobra.Command{
		Use:   "detect <video>",
		Short: "Detect hand boundaries in a video",
		Long: `Sample frames from the video, classify each one with the vision model,
and turn accepted hand starts into hand timecodes.

Flags override the [detection] section of the configuration file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireLLM(); err != nil {
				return services.Wrap(services.ErrConfiguration, "config", "llm", "", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			detectCfg := detection.ConfigFrom(cfg.Detection)
			applyDetectFlags(cmd, flags, &detectCfg)

			opts := []workflow.Option{}
			if !flags.noStore {
				store, err := ctx.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, workflow.WithSink(store))
			}
			opts = append(opts, ctx.runnerOpts...)
			runner := workflow.NewRunner(cfg, logger, opts...)

			if !flags.skipChecks {
				if err := runner.Preflight(cmd.Context(), flags.noStore); err != nil {
					return err
				}
			}

			result, err := runner.Run(cmd.Context(), workflow.Request{
				Source:          args[0],
				DurationSeconds: flags.duration,
				StreamID:        flags.streamID,
				Detection:       detectCfg,
				NoStore:         flags.noStore,
			})
			if err != nil {
				logging.ErrorWithContext(logger, "detection failed", "detect_failed",
					logging.Error(err),
					logging.String("source", args[0]),
				)
				return err
			}

			if flags.jsonOutput {
				return writeJSON(cmd, result)
			}
			printDetectResult(cmd, result)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&flags.duration, "duration", 0, "Video duration in seconds (probed with ffprobe when omitted)")
	f.StringVar(&flags.streamID, "stream-id", "", "Stream identifier stored with the run")
	f.Float64Var(&flags.interval, "interval", 0, "Seconds between sampled frames")
	f.Float64Var(&flags.threshold, "threshold", 0, "Minimum confidence for a boundary (0-1)")
	f.Float64Var(&flags.minHand, "min-hand", 0, "Minimum seconds between accepted boundaries")
	f.Float64Var(&flags.maxHand, "max-hand", 0, "Maximum seconds between accepted boundaries")
	f.IntVar(&flags.maxFrames, "max-frames", 0, "Maximum frames to sample (0 = no limit)")
	f.IntVar(&flags.concurrency, "concurrency", 0, "Frames classified in parallel")
	f.StringVar(&flags.policy, "policy", "", "Frame failure policy: fail_fast or skip")
	f.BoolVar(&flags.jsonOutput, "json", false, "Output the run as JSON")
	f.BoolVar(&flags.noStore, "no-store", false, "Do not persist the run")
	f.BoolVar(&flags.skipChecks, "skip-checks", false, "Skip dependency and API key checks")

	return cmd
}

// applyDetectFlags copies only flags the user set so config values survive.
func applyDetectFlags(cmd *cobra.Command, flags detectFlags, cfg *detection.Config) {
	changed := cmd.Flags().Changed
	if changed("interval") {
		cfg.Interval = flags.interval
	}
	if changed("threshold") {
		cfg.Threshold = flags.threshold
	}
	if changed("min-hand") {
		cfg.MinHandDuration = flags.minHand
	}
	if changed("max-hand") {
		cfg.MaxHandDuration = flags.maxHand
	}
	if changed("max-frames") {
		cfg.MaxFrames = flags.maxFrames
	}
	if changed("concurrency") {
		cfg.Concurrency = flags.concurrency
	}
	if changed("policy") {
		cfg.FailurePolicy = strings.ToLower(strings.TrimSpace(flags.policy))
	}
}

func printDetectResult(cmd *cobra.Command, result *workflow.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d hands from %d boundaries (%d/%d frames classified, %d failed)\n",
		result.RunID,
		len(result.Hands),
		len(result.Boundaries),
		result.Stats.Classified,
		result.Stats.Frames,
		result.Stats.Failed,
	)
	if len(result.Hands) == 0 {
		fmt.Fprintln(out, "No hands detected.")
		return
	}
	fmt.Fprint(out, renderHandTable(result.Hands))
	fmt.Fprintf(out, "Average hand length: %s\n", timecode.FormatTimestamp(result.Summary.AverageSeconds))
	if !result.Stored {
		fmt.Fprintln(out, "Run not stored.")
	}
}
