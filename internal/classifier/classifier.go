package classifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"handcut/internal/logging"
	"handcut/internal/services"
	"handcut/internal/services/llm"
)

const (
	stageClassify = "classify"

	boundaryMaxTokens   = 500
	handNumberMaxTokens = 100

	defaultParseAttempts = 3
	defaultCallTimeout   = 60 * time.Second
	defaultRetryBase     = time.Second
	defaultRetryMax      = 10 * time.Second
)

// VisionClient sends one image plus prompt to a vision model.
type VisionClient interface {
	CompleteVision(ctx context.Context, prompt string, image []byte, maxTokens int) (string, error)
}

// Classifier wraps a VisionClient with the boundary prompt and schema.
type Classifier struct {
	client        VisionClient
	logger        *slog.Logger
	parseAttempts int
	callTimeout   time.Duration
	retryBase     time.Duration
	retryMax      time.Duration
	sleeper       func(time.Duration)
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithParseAttempts sets how many times a malformed reply is re-asked (total attempts).
func WithParseAttempts(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.parseAttempts = n
		}
	}
}

// WithCallTimeout bounds each inference call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithRetryBackoff overrides the parse retry backoff.
func WithRetryBackoff(base, maxDelay time.Duration) Option {
	return func(c *Classifier) {
		c.retryBase = base
		c.retryMax = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Classifier) {
		c.sleeper = sleeper
	}
}

// New builds a Classifier around client.
func New(client VisionClient, logger *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		client:        client,
		logger:        logging.NewComponentLogger(logger, "classifier"),
		parseAttempts: defaultParseAttempts,
		callTimeout:   defaultCallTimeout,
		retryBase:     defaultRetryBase,
		retryMax:      defaultRetryMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyFrame asks whether image starts a new hand. previous, when non-nil,
// is the most recent analysis and its reasoning is included in the prompt.
func (c *Classifier) ClassifyFrame(ctx context.Context, image []byte, previous *Analysis) (Analysis, error) {
	if len(image) == 0 {
		return Analysis{}, services.Wrap(services.ErrValidation, stageClassify, "frame", "empty image", nil)
	}
	logger := logging.WithContext(ctx, c.logger)
	prompt := BoundaryPrompt(previous)

	var lastErr error
	for attempt := 1; attempt <= c.parseAttempts; attempt++ {
		reply, err := c.complete(ctx, prompt, image, boundaryMaxTokens)
		if err != nil {
			return Analysis{}, err
		}
		analysis, err := ParseAnalysis(reply)
		if err == nil {
			logger.Debug("frame classified",
				logging.Verdict(analysis.IsBoundary, analysis.Confidence, analysis.HandNumber),
				logging.Int("attempt", attempt),
			)
			return analysis, nil
		}
		lastErr = err
		if attempt == c.parseAttempts {
			break
		}
		delay := llm.Backoff(attempt, c.retryBase, c.retryMax)
		logger.Warn("classifier reply rejected; retrying",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", c.parseAttempts),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldEventType, "classify_parse_retry"),
		)
		if err := llm.Sleep(ctx, delay, c.sleeper); err != nil {
			return Analysis{}, err
		}
	}
	return Analysis{}, lastErr
}

// HandNumber reads the hand-number overlay on image. It returns "" when no
// number is visible or anything goes wrong; failures are logged, never returned.
func (c *Classifier) HandNumber(ctx context.Context, image []byte) string {
	logger := logging.WithContext(ctx, c.logger)
	if len(image) == 0 {
		return ""
	}
	reply, err := c.complete(ctx, handNumberPrompt, image, handNumberMaxTokens)
	if err != nil {
		logging.WarnWithContext(logger, "hand number extraction failed", "hand_number_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm connectivity and model vision support"),
			logging.String(logging.FieldImpact, "hand falls back to positional numbering"),
		)
		return ""
	}
	number := NormalizeHandNumber(reply)
	logger.Debug("hand number read",
		logging.String("reply", llm.SummarizeSnippet(reply)),
		logging.String("hand_number", number),
	)
	return number
}

// complete runs one inference call under the per-call deadline. A call that
// outlives its own deadline while the parent is still live is a timeout.
func (c *Classifier) complete(ctx context.Context, prompt string, image []byte, maxTokens int) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	reply, err := c.client.CompleteVision(callCtx, prompt, image, maxTokens)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
		return "", services.Wrap(services.ErrTimeout, stageClassify, "inference", "call exceeded "+c.callTimeout.String(), err)
	}
	return "", services.Wrap(services.ErrExternalTool, stageClassify, "inference", "", err)
}
