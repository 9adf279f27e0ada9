package logging

import (
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Frame groups the position of a sampled frame: frame.index and frame.ts.
func Frame(index int, timestampSeconds float64) Attr {
	return slog.Group("frame", slog.Int("index", index), slog.Float64("ts", timestampSeconds))
}

// Verdict groups a classifier answer for one frame.
func Verdict(boundary bool, confidence float64, handNumber string) Attr {
	attrs := []any{slog.Bool("boundary", boundary), slog.Float64("confidence", confidence)}
	if handNumber != "" {
		attrs = append(attrs, slog.String("hand_number", handNumber))
	}
	return slog.Group("verdict", attrs...)
}

// Args converts attributes into the variadic form slog.Logger methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger yields
// a discarding one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// eventDefaults fill fields a WARN or ERROR line must carry when the caller
// left them out.
var (
	warnDefaults = []Attr{
		String(FieldErrorHint, "check logs for details"),
		String(FieldImpact, "run continues with reduced results"),
	}
	errorDefaults = []Attr{
		String(FieldErrorHint, "check logs for details"),
	}
)

func withEventFields(attrs []Attr, eventType string, defaults []Attr) []Attr {
	present := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		present[a.Key] = true
	}
	if !present[FieldEventType] {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	for _, d := range defaults {
		if !present[d.Key] {
			attrs = append(attrs, d)
		}
	}
	return attrs
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Warn(msg, Args(withEventFields(attrs, eventType, warnDefaults)...)...)
}

// ErrorWithContext logs an error that always carries event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Error(msg, Args(withEventFields(attrs, eventType, errorDefaults)...)...)
}
