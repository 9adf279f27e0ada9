package frames

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"handcut/internal/logging"
	"handcut/internal/services"
)

const (
	defaultQuality = 2
	stageExtract   = "extract"
)

// Frame is one sampled still image.
type Frame struct {
	Index            int
	TimestampSeconds float64
	Image            []byte
	SizeBytes        int
}

// Options controls sampling.
type Options struct {
	// Interval is the spacing between frames in seconds. Required.
	Interval float64
	// Quality is ffmpeg's -q:v (1 best, 31 worst). Zero means 2.
	Quality int
	// Scale is an ffmpeg scale filter argument such as "1280:-2". Empty keeps the source size.
	Scale string
	// MaxFrames caps the frame count. Zero or negative means no cap.
	MaxFrames int
}

// FrameCount returns how many frames Extract will produce for duration.
func (o Options) FrameCount(durationSeconds float64) int {
	if o.Interval <= 0 || durationSeconds <= 0 || math.IsNaN(durationSeconds) {
		return 0
	}
	count := int(math.Floor(durationSeconds / o.Interval))
	if o.MaxFrames > 0 && o.MaxFrames < count {
		count = o.MaxFrames
	}
	return max(count, 0)
}

// ExtractionError reports an ffmpeg failure for one requested frame.
type ExtractionError struct {
	Index         int
	OffsetSeconds float64
	Err           error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract frame %d at %.3fs: %v", e.Index, e.OffsetSeconds, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is marks tool failures as external; cancellations keep their own identity.
func (e *ExtractionError) Is(target error) bool {
	if target != services.ErrExternalTool {
		return false
	}
	return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Extractor samples frames with ffmpeg.
type Extractor struct {
	ffmpeg  string
	baseDir string
	logger  *slog.Logger
	run     CommandRunner
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithCommandRunner replaces ffmpeg execution (tests).
func WithCommandRunner(run CommandRunner) Option {
	return func(e *Extractor) {
		if run != nil {
			e.run = run
		}
	}
}

// NewExtractor builds an extractor writing scratch files under baseDir
// (the system temp dir when empty).
func NewExtractor(ffmpegBinary, baseDir string, logger *slog.Logger, opts ...Option) *Extractor {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	e := &Extractor{
		ffmpeg:  ffmpegBinary,
		baseDir: baseDir,
		logger:  logging.NewComponentLogger(logger, "frames"),
		run:     runCommand,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract samples frames at i*Interval for i in [0, FrameCount). Either every
// frame is returned or none is: the first failure discards earlier frames.
func (e *Extractor) Extract(ctx context.Context, source string, durationSeconds float64, opts Options) ([]Frame, error) {
	source = strings.TrimSpace(source)
	if err := validate(source, durationSeconds, &opts); err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, e.logger)

	count := opts.FrameCount(durationSeconds)
	if count == 0 {
		logger.Info("no frames to extract",
			logging.Float64("duration_seconds", durationSeconds),
			logging.Float64("interval_seconds", opts.Interval),
		)
		return []Frame{}, nil
	}

	wd, err := acquireWorkDir(e.baseDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageExtract, "work dir", "", err)
	}
	defer func() {
		if err := wd.Close(); err != nil {
			logging.WarnWithContext(logger, "frame work dir cleanup failed", "workdir_cleanup_failed",
				logging.String("path", wd.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "directory is removed by the next start-up sweep"),
			)
		}
	}()

	frames := make([]Frame, 0, count)
	var totalBytes int
	for i := range count {
		offset := float64(i) * opts.Interval
		image, err := e.extractOne(ctx, wd, source, i, offset, opts)
		if err != nil {
			return nil, &ExtractionError{Index: i, OffsetSeconds: offset, Err: err}
		}
		frames = append(frames, Frame{
			Index:            i,
			TimestampSeconds: offset,
			Image:            image,
			SizeBytes:        len(image),
		})
		totalBytes += len(image)
		logger.Debug("frame extracted",
			logging.Frame(i, offset),
			logging.Int("size_bytes", len(image)),
		)
	}

	logger.Info("frames extracted",
		logging.Int("count", len(frames)),
		logging.Int("total_bytes", totalBytes),
		logging.Float64("interval_seconds", opts.Interval),
	)
	return frames, nil
}

func (e *Extractor) extractOne(ctx context.Context, wd *workDir, source string, index int, offset float64, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	output := wd.framePath(index)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", source,
		"-frames:v", "1",
		"-q:v", strconv.Itoa(opts.Quality),
	}
	if opts.Scale != "" {
		args = append(args, "-vf", "scale="+opts.Scale)
	}
	args = append(args, output)

	if err := e.run(ctx, e.ffmpeg, args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	data, err := os.ReadFile(output)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("ffmpeg produced no image (offset past end of stream?)")
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if err := os.Remove(output); err != nil {
		return nil, fmt.Errorf("remove frame: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("ffmpeg produced an empty image")
	}
	return data, nil
}

func validate(source string, durationSeconds float64, opts *Options) error {
	if source == "" {
		return services.Wrap(services.ErrValidation, stageExtract, "source", "source is required", nil)
	}
	if opts.Interval <= 0 || math.IsNaN(opts.Interval) || math.IsInf(opts.Interval, 0) {
		return services.Wrap(services.ErrValidation, stageExtract, "options", fmt.Sprintf("interval must be positive, got %v", opts.Interval), nil)
	}
	if math.IsNaN(durationSeconds) || durationSeconds < 0 || math.IsInf(durationSeconds, 0) {
		return services.Wrap(services.ErrValidation, stageExtract, "options", fmt.Sprintf("invalid duration %v", durationSeconds), nil)
	}
	if opts.Quality == 0 {
		opts.Quality = defaultQuality
	}
	if opts.Quality < 1 || opts.Quality > 31 {
		return services.Wrap(services.ErrValidation, stageExtract, "options", fmt.Sprintf("quality must be 1-31, got %d", opts.Quality), nil)
	}
	opts.Scale = strings.TrimSpace(opts.Scale)
	if isURL(source) {
		return nil
	}
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stageExtract, "source", source, err)
		}
		return services.Wrap(services.ErrValidation, stageExtract, "source", source, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, stageExtract, "source", source+" is a directory", nil)
	}
	return nil
}

// isURL reports sources ffmpeg should open through a protocol handler.
func isURL(source string) bool {
	scheme, _, ok := strings.Cut(source, "://")
	return ok && scheme != "" && !strings.ContainsAny(scheme, `/\`)
}
