package preflight

import (
	"context"

	"handcut/internal/config"
	"handcut/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Optional bool
}

// Options selects which checks RunAll performs.
type Options struct {
	// SkipLLM omits the model reachability check (handcut check --skip-llm).
	SkipLLM bool
	// SkipStorage omits opening the hand store (e.g. --no-store runs).
	SkipStorage bool
}

// RunAll executes the preflight checks for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	for _, status := range deps.CheckBinaries(deps.MediaRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary())) {
		results = append(results, fromDependency(status))
	}
	if !opts.SkipStorage {
		results = append(results, CheckStorage(ctx, cfg))
	}
	if !opts.SkipLLM {
		results = append(results, CheckLLM(ctx, "Vision LLM", cfg.GetLLM()))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

func fromDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
	switch {
	case status.Detail != "":
		result.Detail = status.Detail
	case status.Version != "":
		result.Detail = status.Version
	default:
		result.Detail = status.Path
	}
	return result
}
