package detection

import (
	"handcut/internal/classifier"
)

// SceneChange is an accepted hand boundary.
type SceneChange struct {
	TimestampSeconds float64 `json:"timestamp"`
	Confidence       float64 `json:"confidence"`
	FrameIndex       int     `json:"frameIndex"`
	HandNumber       string  `json:"handNumber,omitempty"`
}

// FilterByConfidence keeps analyses marked as boundaries whose confidence
// meets threshold. analyses and timestamps are parallel, in frame order.
func FilterByConfidence(analyses []classifier.Analysis, timestamps []float64, threshold float64) []SceneChange {
	var out []SceneChange
	for i, a := range analyses {
		if i >= len(timestamps) {
			break
		}
		if !a.IsBoundary || a.Confidence < threshold {
			continue
		}
		out = append(out, SceneChange{
			TimestampSeconds: timestamps[i],
			Confidence:       a.Confidence,
			FrameIndex:       i,
			HandNumber:       a.HandNumber,
		})
	}
	return out
}

// FilterByDuration drops a boundary when the gap to its successor falls
// outside [minSeconds, maxSeconds]. The last boundary is always kept.
func FilterByDuration(changes []SceneChange, minSeconds, maxSeconds float64) []SceneChange {
	if len(changes) == 0 {
		return nil
	}
	out := make([]SceneChange, 0, len(changes))
	for i := 0; i < len(changes)-1; i++ {
		gap := changes[i+1].TimestampSeconds - changes[i].TimestampSeconds
		if gap >= minSeconds && gap <= maxSeconds {
			out = append(out, changes[i])
		}
	}
	return append(out, changes[len(changes)-1])
}
