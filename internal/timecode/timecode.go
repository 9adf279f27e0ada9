// Package timecode converts accepted hand boundaries into HH:MM:SS hand
// ranges and offers small helpers for working with those strings.
package timecode

import (
	"fmt"
	"math"
)

// HandTimecode is one hand's time range in the source video.
type HandTimecode struct {
	HandNumber int     `json:"handNumber"`
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Confidence float64 `json:"confidence"`
}

// Boundary is the minimal boundary view the formatter needs.
type Boundary struct {
	TimestampSeconds float64
	Confidence       float64
	HandNumber       string
}

// FormatTimestamp renders seconds as HH:MM:SS. Hours do not wrap at 24 and
// fractions are truncated. Negative or NaN input renders as 00:00:00.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || seconds <= 0 {
		return "00:00:00"
	}
	if math.IsInf(seconds, 1) || seconds > math.MaxInt64/2 {
		seconds = math.MaxInt64 / 2
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FromBoundaries emits one record per adjacent boundary pair: boundary i
// starts hand i and boundary i+1 ends it. The hand number is the integer
// prefix of the start boundary's reading, or i+1 when it has none.
func FromBoundaries(boundaries []Boundary) []HandTimecode {
	if len(boundaries) < 2 {
		return []HandTimecode{}
	}
	out := make([]HandTimecode, 0, len(boundaries)-1)
	for i := 0; i < len(boundaries)-1; i++ {
		current, next := boundaries[i], boundaries[i+1]
		number, ok := parseLeadingInt(current.HandNumber)
		if !ok {
			number = i + 1
		}
		out = append(out, HandTimecode{
			HandNumber: number,
			StartTime:  FormatTimestamp(current.TimestampSeconds),
			EndTime:    FormatTimestamp(next.TimestampSeconds),
			Confidence: current.Confidence,
		})
	}
	return out
}

// parseLeadingInt reads an optional sign and leading decimal digits after any
// leading whitespace, ignoring whatever follows ("12abc" is 12).
func parseLeadingInt(value string) (int, bool) {
	i := 0
	for i < len(value) && isSpace(value[i]) {
		i++
	}
	negative := false
	if i < len(value) && (value[i] == '+' || value[i] == '-') {
		negative = value[i] == '-'
		i++
	}
	start := i
	n := 0
	for i < len(value) && value[i] >= '0' && value[i] <= '9' {
		if n > (math.MaxInt32-int(value[i]-'0'))/10 {
			return 0, false
		}
		n = n*10 + int(value[i]-'0')
		i++
	}
	if i == start {
		return 0, false
	}
	if negative {
		n = -n
	}
	return n, true
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
