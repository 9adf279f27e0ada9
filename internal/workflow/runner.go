package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"handcut/internal/classifier"
	"handcut/internal/config"
	"handcut/internal/detection"
	"handcut/internal/frames"
	"handcut/internal/handstore"
	"handcut/internal/logging"
	"handcut/internal/media/ffprobe"
	"handcut/internal/notifications"
	"handcut/internal/preflight"
	"handcut/internal/services"
	"handcut/internal/services/llm"
	"handcut/internal/timecode"
)

// MethodVision labels runs whose boundaries came from the vision classifier.
const MethodVision = "vision"

// BoundaryDetector finds accepted hand boundaries in a source.
type BoundaryDetector interface {
	DetectWithStats(ctx context.Context, source string, durationSeconds float64, cfg detection.Config) ([]detection.SceneChange, detection.Stats, error)
}

// DurationProber reads media metadata.
type DurationProber interface {
	Probe(ctx context.Context, source string) (ffprobe.Result, error)
}

// Request describes one detection run.
type Request struct {
	Source string
	// DurationSeconds is probed with ffprobe when zero.
	DurationSeconds float64
	StreamID        string
	Detection       detection.Config
	// NoStore skips persisting the run.
	NoStore bool
}

// Result is a finished run.
type Result struct {
	RunID           string                  `json:"runId"`
	Source          string                  `json:"source"`
	StreamID        string                  `json:"streamId,omitempty"`
	DurationSeconds float64                 `json:"durationSeconds"`
	Boundaries      []detection.SceneChange `json:"boundaries"`
	Hands           []timecode.HandTimecode `json:"hands"`
	Summary         timecode.Summary        `json:"summary"`
	Stats           detection.Stats         `json:"stats"`
	Stored          bool                    `json:"stored"`
	StartedAt       time.Time               `json:"startedAt"`
	FinishedAt      time.Time               `json:"finishedAt"`
}

// Runner executes detection runs.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	detector BoundaryDetector
	prober   DurationProber
	sink     handstore.Sink
	notifier notifications.Service
	model    string
	newID    func() string
	now      func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithDetector replaces the default ffmpeg + LLM detector.
func WithDetector(d BoundaryDetector) Option {
	return func(r *Runner) { r.detector = d }
}

// WithProber replaces the default ffprobe prober.
func WithProber(p DurationProber) Option {
	return func(r *Runner) { r.prober = p }
}

// WithSink sets where finished runs are stored. Without one, runs are not persisted.
func WithSink(s handstore.Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithNotifier replaces the config-derived notifier.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithIDGenerator overrides run id generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// WithClock overrides the time source (tests).
func WithClock(fn func() time.Time) Option {
	return func(r *Runner) { r.now = fn }
}

// NewRunner wires the production pipeline from cfg. Options replace individual collaborators.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifications.NewService(cfg),
		model:    cfg.GetLLM().Model,
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.prober == nil {
		r.prober = ffprobe.NewProber(cfg.FFprobeBinary())
	}
	if r.detector == nil {
		r.detector = newDefaultDetector(cfg, logger)
	}
	return r
}

func newDefaultDetector(cfg *config.Config, logger *slog.Logger) *detection.Detector {
	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	analyzer := classifier.New(client, logger,
		classifier.WithParseAttempts(cfg.Detection.ParseAttempts),
		classifier.WithCallTimeout(time.Duration(cfg.Detection.ClassifyTimeoutSeconds)*time.Second),
	)
	extractor := frames.NewExtractor(cfg.FFmpegBinary(), cfg.Paths.WorkDir, logger)
	return detection.NewDetector(extractor, analyzer, logger)
}

// Preflight runs the readiness checks a detection needs and fails with
// ErrConfiguration naming every failed check.
func (r *Runner) Preflight(ctx context.Context, skipStorage bool) error {
	failed := preflight.Failed(preflight.RunAll(ctx, r.cfg, preflight.Options{SkipStorage: skipStorage}))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, f := range failed {
		parts = append(parts, f.Name+": "+f.Detail)
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(parts, "; "), nil)
}

// Run executes one detection run. Failures are reported through the notifier
// before being returned.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	result, err := r.run(ctx, req)
	if err != nil {
		if notifyErr := r.notifier.NotifyError(context.WithoutCancel(ctx), err, req.Source); notifyErr != nil {
			logging.WarnWithContext(r.logger, "error notification failed", "notify_failed",
				logging.Error(notifyErr),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "failure was not pushed"),
			)
		}
		return nil, err
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context, req Request) (*Result, error) {
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "request", "source is required", nil)
	}
	runID := r.newID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	started := r.now()

	duration := req.DurationSeconds
	if duration <= 0 {
		probed, err := r.probeDuration(ctx, req.Source)
		if err != nil {
			return nil, err
		}
		duration = probed
	}
	logger.Info("detection run started",
		logging.String("source", req.Source),
		logging.Float64("duration_seconds", duration),
		logging.Float64("interval_seconds", req.Detection.Interval),
		logging.String("policy", req.Detection.FailurePolicy),
	)

	changes, stats, err := r.detector.DetectWithStats(ctx, req.Source, duration, req.Detection)
	if err != nil {
		return nil, err
	}
	hands := timecode.FromBoundaries(detection.Boundaries(changes))
	result := &Result{
		RunID:           runID,
		Source:          req.Source,
		StreamID:        strings.TrimSpace(req.StreamID),
		DurationSeconds: duration,
		Boundaries:      changes,
		Hands:           hands,
		Summary:         timecode.Summarize(hands),
		Stats:           stats,
		StartedAt:       started,
		FinishedAt:      r.now(),
	}

	if !req.NoStore && r.sink != nil {
		if err := r.sink.SaveRun(ctx, r.toRun(result)); err != nil {
			return nil, services.Wrap(services.ErrTransient, "store", "save run", runID, err)
		}
		result.Stored = true
	}

	elapsed := result.FinishedAt.Sub(started)
	logger.Info("detection run completed",
		logging.Int("hands", len(hands)),
		logging.Int("boundaries", len(changes)),
		logging.Int("failed_frames", stats.Failed),
		logging.Bool("stored", result.Stored),
		logging.Duration("elapsed", elapsed),
	)
	if err := r.notifier.NotifyDetectionCompleted(ctx, notifications.RunSummary{
		RunID:    runID,
		Source:   req.Source,
		Hands:    len(hands),
		Frames:   stats.Frames,
		Failed:   stats.Failed,
		Duration: elapsed,
	}); err != nil {
		logging.WarnWithContext(logger, "completion notification failed", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run succeeded but was not pushed"),
		)
	}
	return result, nil
}

func (r *Runner) probeDuration(ctx context.Context, source string) (float64, error) {
	probe, err := r.prober.Probe(services.WithStage(ctx, "probe"), source)
	switch {
	case err == nil:
		return probe.DurationSeconds(), nil
	case errors.Is(err, ffprobe.ErrNoVideo), errors.Is(err, ffprobe.ErrNoDuration):
		return 0, services.Wrap(services.ErrValidation, "probe", "duration", fmt.Sprintf("%s (pass --duration to override)", source), err)
	case ctx.Err() != nil:
		return 0, ctx.Err()
	default:
		return 0, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", source, err)
	}
}

func (r *Runner) toRun(result *Result) *handstore.Run {
	return &handstore.Run{
		ID:              result.RunID,
		Source:          result.Source,
		StreamID:        result.StreamID,
		DurationSeconds: result.DurationSeconds,
		Method:          MethodVision,
		Model:           r.model,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		Hands:           result.Hands,
	}
}
