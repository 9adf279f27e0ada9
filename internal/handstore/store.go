package handstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"handcut/internal/config"
	"handcut/internal/services"
	"handcut/internal/timecode"
)

// ErrRunNotFound reports a lookup for an unknown run id.
var ErrRunNotFound = fmt.Errorf("%w: detection run", services.ErrNotFound)

// Run is one completed detection run.
type Run struct {
	ID              string                  `json:"id"`
	Source          string                  `json:"source"`
	StreamID        string                  `json:"streamId,omitempty"`
	DurationSeconds float64                 `json:"durationSeconds"`
	Method          string                  `json:"method"`
	Model           string                  `json:"model,omitempty"`
	StartedAt       time.Time               `json:"startedAt"`
	FinishedAt      time.Time               `json:"finishedAt"`
	Hands           []timecode.HandTimecode `json:"hands"`
}

// RunSummary is the list view of a stored run.
type RunSummary struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	StreamID        string    `json:"streamId,omitempty"`
	DurationSeconds float64   `json:"durationSeconds"`
	HandCount       int       `json:"handCount"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// Sink receives finished runs.
type Sink interface {
	SaveRun(ctx context.Context, run *Run) error
}

// Store is a Sink that can also read runs back.
type Store interface {
	Sink
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	Close() error
}

// Open connects to the backend selected by cfg.Storage.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", "config is nil", nil)
	}
	switch cfg.Storage.Backend {
	case config.StorageSQLite, "":
		return OpenSQLite(ctx, cfg.Storage.SQLitePath)
	case config.StoragePostgres:
		return OpenPostgres(ctx, cfg.Storage.PostgresDSN)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", fmt.Sprintf("unknown backend %q", cfg.Storage.Backend), nil)
	}
}

func validateRun(run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(run.Source) == "" {
		return errors.New("run source is required")
	}
	return nil
}

const defaultListLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
