package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"handcut/internal/classifier"
	"handcut/internal/config"
	"handcut/internal/frames"
	"handcut/internal/logging"
	"handcut/internal/services"
	"handcut/internal/timecode"
)

// Stage names reported by DetectionError.
const (
	StageExtract  = "extract"
	StageClassify = "classify"
)

// Config tunes one detection run. Zero values take the defaults noted on each field.
type Config struct {
	Interval  float64
	Quality   int
	Scale     string
	MaxFrames int
	// Concurrency is the batch size and hand-number lookup limit (3).
	Concurrency int
	// Threshold is the minimum boundary confidence (0.7). It must be above 0.
	Threshold float64
	// MinHandDuration and MaxHandDuration bound the gap between accepted
	// boundaries in seconds. Both zero means 30 to 600.
	MinHandDuration float64
	MaxHandDuration float64
	// FailurePolicy is config.FailurePolicyFailFast (default) or config.FailurePolicySkip.
	FailurePolicy string
	// RunTimeout bounds the whole run. Zero disables it.
	RunTimeout time.Duration
}

// ConfigFrom maps the [detection] config section onto a run Config.
func ConfigFrom(d config.Detection) Config {
	return Config{
		Interval:        d.SampleInterval,
		Quality:         d.Quality,
		Scale:           d.Scale,
		MaxFrames:       d.MaxFrames,
		Concurrency:     d.Concurrency,
		Threshold:       d.Threshold,
		MinHandDuration: d.MinHandDuration,
		MaxHandDuration: d.MaxHandDuration,
		FailurePolicy:   d.FailurePolicy,
		RunTimeout:      time.Duration(d.RunTimeoutSeconds) * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = config.DefaultConcurrency
	}
	if c.Threshold == 0 {
		c.Threshold = config.DefaultThreshold
	}
	if c.MinHandDuration == 0 && c.MaxHandDuration == 0 {
		c.MinHandDuration = config.DefaultMinHandDuration
		c.MaxHandDuration = config.DefaultMaxHandDuration
	}
	if c.FailurePolicy == "" {
		c.FailurePolicy = config.FailurePolicyFailFast
	}
	return c
}

func (c Config) validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return services.Wrap(services.ErrValidation, "detect", "config", fmt.Sprintf("threshold %v outside (0,1]", c.Threshold), nil)
	}
	if c.MinHandDuration < 0 || c.MaxHandDuration < c.MinHandDuration {
		return services.Wrap(services.ErrValidation, "detect", "config",
			fmt.Sprintf("hand duration bounds [%v, %v] are invalid", c.MinHandDuration, c.MaxHandDuration), nil)
	}
	switch c.FailurePolicy {
	case config.FailurePolicyFailFast, config.FailurePolicySkip:
	default:
		return services.Wrap(services.ErrValidation, "detect", "config", fmt.Sprintf("unknown failure policy %q", c.FailurePolicy), nil)
	}
	return nil
}

// Stats summarizes a run.
type Stats struct {
	Frames     int `json:"frames"`
	Classified int `json:"classified"`
	Failed     int `json:"failed"`
	Candidates int `json:"candidates"`
	Accepted   int `json:"accepted"`
}

// DetectionError reports which pipeline stage failed.
type DetectionError struct {
	Stage string
	Err   error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("hand detection failed at %s: %v", e.Stage, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// FrameSource produces the sampled frames for a run.
type FrameSource interface {
	Extract(ctx context.Context, source string, durationSeconds float64, opts frames.Options) ([]frames.Frame, error)
}

// Analyzer classifies frames and reads hand numbers.
type Analyzer interface {
	ClassifyFrame(ctx context.Context, image []byte, previous *classifier.Analysis) (classifier.Analysis, error)
	HandNumber(ctx context.Context, image []byte) string
}

// Detector wires extraction and classification together.
type Detector struct {
	frames   FrameSource
	analyzer Analyzer
	logger   *slog.Logger
}

// NewDetector builds a Detector.
func NewDetector(source FrameSource, analyzer Analyzer, logger *slog.Logger) *Detector {
	return &Detector{
		frames:   source,
		analyzer: analyzer,
		logger:   logging.NewComponentLogger(logger, "detection"),
	}
}

// Detect returns the accepted boundaries in timestamp order.
func (d *Detector) Detect(ctx context.Context, source string, durationSeconds float64, cfg Config) ([]SceneChange, error) {
	changes, _, err := d.DetectWithStats(ctx, source, durationSeconds, cfg)
	return changes, err
}

// DetectWithStats is Detect plus run counters.
func (d *Detector) DetectWithStats(ctx context.Context, source string, durationSeconds float64, cfg Config) ([]SceneChange, Stats, error) {
	var stats Stats
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, stats, err
	}
	runCtx := ctx
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, d.logger)
	started := time.Now()

	sampled, err := d.frames.Extract(services.WithStage(runCtx, StageExtract), source, durationSeconds, frames.Options{
		Interval:  cfg.Interval,
		Quality:   cfg.Quality,
		Scale:     cfg.Scale,
		MaxFrames: cfg.MaxFrames,
	})
	if err != nil {
		return nil, stats, d.fail(ctx, runCtx, cfg, StageExtract, err)
	}
	stats.Frames = len(sampled)

	classifyCtx := services.WithStage(runCtx, StageClassify)
	analyses, failed, err := d.classifyAll(classifyCtx, sampled, cfg)
	stats.Failed = failed
	stats.Classified = len(sampled) - failed
	if err != nil {
		return nil, stats, d.fail(ctx, runCtx, cfg, StageClassify, err)
	}

	timestamps := make([]float64, len(sampled))
	for i, f := range sampled {
		timestamps[i] = f.TimestampSeconds
	}
	candidates := FilterByConfidence(analyses, timestamps, cfg.Threshold)
	stats.Candidates = len(candidates)

	if err := d.fillHandNumbers(classifyCtx, sampled, candidates, cfg.Concurrency); err != nil {
		return nil, stats, d.fail(ctx, runCtx, cfg, StageClassify, err)
	}

	accepted := FilterByDuration(candidates, cfg.MinHandDuration, cfg.MaxHandDuration)
	if accepted == nil {
		accepted = []SceneChange{}
	}
	stats.Accepted = len(accepted)

	logger.Info("hand detection completed",
		logging.Int("frames", stats.Frames),
		logging.Int("failed_frames", stats.Failed),
		logging.Int("candidates", stats.Candidates),
		logging.Int("boundaries", stats.Accepted),
		logging.Duration("elapsed", time.Since(started)),
	)
	return accepted, stats, nil
}

// classifyAll runs batches of cfg.Concurrency frames one after another. Every
// frame in a batch sees the same previous analysis: the last successful
// result before the batch. Skipped frames never become context.
func (d *Detector) classifyAll(ctx context.Context, sampled []frames.Frame, cfg Config) ([]classifier.Analysis, int, error) {
	logger := logging.WithContext(ctx, d.logger)
	analyses := make([]classifier.Analysis, len(sampled))
	skipped := make([]bool, len(sampled))
	var failed atomic.Int32
	var previous *classifier.Analysis

	for start := 0; start < len(sampled); start += cfg.Concurrency {
		end := min(start+cfg.Concurrency, len(sampled))
		snapshot := previous
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				frame := sampled[i]
				frameCtx := services.WithFrameIndex(gctx, frame.Index)
				analysis, err := d.analyzer.ClassifyFrame(frameCtx, frame.Image, snapshot)
				if err == nil {
					analyses[i] = analysis
					return nil
				}
				if cfg.FailurePolicy != config.FailurePolicySkip || gctx.Err() != nil {
					return fmt.Errorf("frame %d at %.3fs: %w", frame.Index, frame.TimestampSeconds, err)
				}
				failed.Add(1)
				skipped[i] = true
				analyses[i] = classifier.Analysis{Reasoning: "classification failed: " + err.Error()}
				logging.WarnWithContext(logging.WithContext(frameCtx, d.logger), "frame classification failed; skipping", "frame_skipped",
					logging.Frame(frame.Index, frame.TimestampSeconds),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "inspect the model reply or raise detection.parse_attempts"),
					logging.String(logging.FieldImpact, "frame treated as a non-boundary"),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, int(failed.Load()), err
		}
		for j := end - 1; j >= start; j-- {
			if !skipped[j] {
				last := analyses[j]
				previous = &last
				break
			}
		}
		logger.Debug("batch classified",
			logging.Int("first_frame", start),
			logging.Int("last_frame", end-1),
		)
	}
	return analyses, int(failed.Load()), nil
}

// fillHandNumbers asks for the overlay number of every candidate that lacks
// one. Lookups never fail the run; only cancellation does.
func (d *Detector) fillHandNumbers(ctx context.Context, sampled []frames.Frame, candidates []SceneChange, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range candidates {
		if candidates[i].HandNumber != "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frame := sampled[candidates[i].FrameIndex]
			candidates[i].HandNumber = d.analyzer.HandNumber(services.WithFrameIndex(gctx, frame.Index), frame.Image)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// fail wraps err for stage, mapping expiry of the run deadline to ErrTimeout.
func (d *Detector) fail(parent, runCtx context.Context, cfg Config, stage string, err error) error {
	if parent.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		err = services.Wrap(services.ErrTimeout, stage, "run", "exceeded run timeout of "+cfg.RunTimeout.String(), err)
	}
	logging.ErrorWithContext(logging.WithContext(parent, d.logger), "hand detection failed", "detection_failed",
		logging.String(logging.FieldStage, stage),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, stageHint(stage)),
	)
	return &DetectionError{Stage: stage, Err: err}
}

func stageHint(stage string) string {
	switch stage {
	case StageExtract:
		return "check the source path and that ffmpeg can decode it"
	default:
		return "check llm connectivity or set detection.failure_policy = \"skip\""
	}
}

// Boundaries converts accepted scene changes for the timecode formatter.
func Boundaries(changes []SceneChange) []timecode.Boundary {
	out := make([]timecode.Boundary, len(changes))
	for i, c := range changes {
		out[i] = timecode.Boundary{
			TimestampSeconds: c.TimestampSeconds,
			Confidence:       c.Confidence,
			HandNumber:       strings.TrimSpace(c.HandNumber),
		}
	}
	return out
}
