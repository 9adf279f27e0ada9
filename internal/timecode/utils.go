package timecode

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidTimecode reports a value that is not MM:SS, H:MM:SS or HH:MM:SS.
var ErrInvalidTimecode = errors.New("invalid timecode")

// maxHours caps the hour field so the seconds total cannot overflow.
const maxHours = 100000

// Parse converts MM:SS, H:MM:SS or HH:MM:SS to seconds. The MM:SS form
// accepts minutes past 59 ("90:00" is 5400).
func Parse(value string) (float64, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, value)
	}
	nums := make([]int, len(parts))
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, value)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimecode, value, err)
		}
		nums[i] = n
	}
	var h, m, s int
	if len(nums) == 3 {
		h, m, s = nums[0], nums[1], nums[2]
		if h > maxHours {
			return 0, fmt.Errorf("%w: %q: hours must be at most %d", ErrInvalidTimecode, value, maxHours)
		}
		if m >= 60 {
			return 0, fmt.Errorf("%w: %q: minutes must be below 60", ErrInvalidTimecode, value)
		}
	} else {
		m, s = nums[0], nums[1]
		if m > maxHours*60 {
			return 0, fmt.Errorf("%w: %q: minutes must be at most %d", ErrInvalidTimecode, value, maxHours*60)
		}
	}
	if s >= 60 {
		return 0, fmt.Errorf("%w: %q: seconds must be below 60", ErrInvalidTimecode, value)
	}
	return float64(h*3600 + m*60 + s), nil
}

// Validate reports whether value parses as a timecode.
func Validate(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// InRange reports whether value lies within [0, durationSeconds]. A value
// that does not parse returns the parse error.
func InRange(value string, durationSeconds float64) (bool, error) {
	secs, err := Parse(value)
	if err != nil {
		return false, err
	}
	return secs <= durationSeconds, nil
}

// Duration returns end minus start in seconds. end must come after start.
func Duration(start, end string) (float64, error) {
	s, err := Parse(start)
	if err != nil {
		return 0, err
	}
	e, err := Parse(end)
	if err != nil {
		return 0, err
	}
	if e <= s {
		return 0, fmt.Errorf("%w: end %s is not after start %s", ErrInvalidTimecode, end, start)
	}
	return e - s, nil
}

// RangesOverlap reports whether two [start, end] ranges share any time.
// Ranges that only touch at an endpoint do not overlap.
func RangesOverlap(a, b [2]string) (bool, error) {
	var bounds [4]float64
	for i, v := range []string{a[0], a[1], b[0], b[1]} {
		secs, err := Parse(v)
		if err != nil {
			return false, err
		}
		bounds[i] = secs
	}
	return bounds[0] < bounds[3] && bounds[2] < bounds[1], nil
}

// Sort returns the timecodes in ascending time order.
func Sort(values []string) ([]string, error) {
	type keyed struct {
		value string
		secs  float64
	}
	items := make([]keyed, 0, len(values))
	for _, v := range values {
		secs, err := Parse(v)
		if err != nil {
			return nil, err
		}
		items = append(items, keyed{value: v, secs: secs})
	}
	slices.SortStableFunc(items, func(x, y keyed) int {
		switch {
		case x.secs < y.secs:
			return -1
		case x.secs > y.secs:
			return 1
		}
		return 0
	})
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.value
	}
	return out, nil
}

// Summary aggregates hand lengths.
type Summary struct {
	Count          int     `json:"count"`
	TotalSeconds   float64 `json:"totalSeconds"`
	AverageSeconds float64 `json:"averageSeconds"`
}

// Summarize totals the hands' durations. Hands whose times do not parse or
// run backwards are counted but contribute no time.
func Summarize(hands []HandTimecode) Summary {
	summary := Summary{Count: len(hands)}
	if len(hands) == 0 {
		return summary
	}
	for _, hand := range hands {
		if d, err := Duration(hand.StartTime, hand.EndTime); err == nil {
			summary.TotalSeconds += d
		}
	}
	summary.AverageSeconds = summary.TotalSeconds / float64(len(hands))
	return summary
}
