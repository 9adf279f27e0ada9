package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"handcut/internal/config"
)

// RunLogPattern matches per-run log files written under the log directory.
const RunLogPattern = "handcut-*.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Console receives human output. Defaults to stderr.
	Console io.Writer
	// FilePath, when set, additionally receives JSON records.
	FilePath string
	// NoColor forces plain console output. Color is otherwise enabled only for terminals.
	NoColor bool
}

// New constructs a slog logger using the provided options. The returned closer
// releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	var consoleHandler slog.Handler
	switch format {
	case "", "console":
		consoleHandler = tint.NewHandler(console, &tint.Options{
			Level:      levelVar,
			TimeFormat: "15:04:05",
			NoColor:    opts.NoColor || !isTerminal(console),
		})
	case "json":
		consoleHandler = newJSONHandler(console, levelVar)
	default:
		return nil, nopCloser{}, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	path := strings.TrimSpace(opts.FilePath)
	if path == "" {
		return slog.New(consoleHandler), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nopCloser{}, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nopCloser{}, fmt.Errorf("open log file %s: %w", path, err)
	}
	handler := TeeHandler(consoleHandler, newJSONHandler(file, levelVar))
	return slog.New(handler), file, nil
}

// NewFromConfig creates a logger using application config defaults. When a log
// directory is configured every invocation writes its own JSON log file there
// and files older than the retention window are pruned.
func NewFromConfig(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	opts := Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.FilePath = filepath.Join(dir, runLogName(time.Now()))
	}
	logger, closer, err := New(opts)
	if err != nil {
		return nil, closer, err
	}
	if opts.FilePath != "" {
		CleanupOldLogs(logger, cfg.Logging.RetentionDays, RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: RunLogPattern,
			Exclude: []string{opts.FilePath},
		})
	}
	return logger, closer, nil
}

func runLogName(now time.Time) string {
	return "handcut-" + now.UTC().Format("20060102T150405Z") + ".log"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
