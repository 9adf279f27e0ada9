package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"handcut/internal/services"
	"handcut/internal/services/llm"
)

// Analysis is the model's verdict for one frame.
type Analysis struct {
	IsBoundary bool    `json:"isHandBoundary"`
	Confidence float64 `json:"confidence"`
	// HandNumber holds the digits of a visible hand number, or "" when none was read.
	HandNumber string `json:"handNumber,omitempty"`
	Reasoning  string `json:"reasoning"`
}

// ParseError reports a reply that does not satisfy the analysis schema.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse analysis: %v (reply: %s)", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is marks parse failures as transient so callers may retry.
func (e *ParseError) Is(target error) bool { return target == services.ErrTransient }

var (
	errNoJSONObject = errors.New("no JSON object in reply")
	errMissingField = errors.New("missing required field")
)

type wireAnalysis struct {
	IsHandBoundary *bool           `json:"isHandBoundary"`
	Confidence     *float64        `json:"confidence"`
	HandNumber     json.RawMessage `json:"handNumber"`
	Reasoning      *string         `json:"reasoning"`
}

// ParseAnalysis extracts and validates the first JSON object in reply.
func ParseAnalysis(reply string) (Analysis, error) {
	snippet := llm.SummarizeSnippet(reply)
	obj, ok := llm.FirstJSONObject(reply)
	if !ok {
		return Analysis{}, &ParseError{Snippet: snippet, Err: errNoJSONObject}
	}

	var wire wireAnalysis
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return Analysis{}, &ParseError{Snippet: snippet, Err: err}
	}
	if wire.IsHandBoundary == nil {
		return Analysis{}, &ParseError{Snippet: snippet, Err: fmt.Errorf("%w: isHandBoundary", errMissingField)}
	}
	if wire.Confidence == nil {
		return Analysis{}, &ParseError{Snippet: snippet, Err: fmt.Errorf("%w: confidence", errMissingField)}
	}
	if c := *wire.Confidence; c < 0 || c > 1 {
		return Analysis{}, &ParseError{Snippet: snippet, Err: fmt.Errorf("confidence %v outside [0,1]", c)}
	}
	handNumber, err := decodeHandNumber(wire.HandNumber)
	if err != nil {
		return Analysis{}, &ParseError{Snippet: snippet, Err: err}
	}

	analysis := Analysis{
		IsBoundary: *wire.IsHandBoundary,
		Confidence: *wire.Confidence,
		HandNumber: handNumber,
	}
	if wire.Reasoning != nil {
		analysis.Reasoning = strings.TrimSpace(*wire.Reasoning)
	}
	return analysis, nil
}

// decodeHandNumber accepts a JSON string, number, or null.
func decodeHandNumber(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("handNumber: %w", err)
		}
		return NormalizeHandNumber(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("handNumber: %w", err)
		}
		return NormalizeHandNumber(n.String()), nil
	default:
		return "", fmt.Errorf("handNumber: unsupported JSON value %s", raw)
	}
}

var handPrefixes = []string{"hand no.", "hand no", "hand", "핸드", "no.", "#"}

// NormalizeHandNumber reduces an overlay reading such as "Hand #123",
// "핸드 #45", "＃７８９" or "\"12\"" to its leading digits. Anything without
// digits after the prefix, including the literal null, yields "".
func NormalizeHandNumber(value string) string {
	s := strings.TrimSpace(width.Fold.String(value))
	s = strings.Trim(s, "\"'`“”‘’ ")
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	for {
		trimmed := false
		lower := strings.ToLower(s)
		for _, prefix := range handPrefixes {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) || r > unicode.MaxASCII })
	if end < 0 {
		end = len(s)
	}
	return s[:end]
}
