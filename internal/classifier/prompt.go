package classifier

import "strings"

const boundaryPromptHead = `You are analyzing a poker tournament video frame to detect hand boundaries.

Your task:
1. Determine if this frame shows the START of a NEW hand (not mid-hand or end of hand)
2. Look for visual cues:
   - New cards being dealt (hole cards appearing)
   - Hand number displayed (e.g., "Hand #123", "핸드 #45")
   - Significant scene change (transition between hands)
   - Players' stacks reset or updated
   - Board is clear (no community cards yet)
`

const boundaryPromptTail = `
Respond in JSON format:
{
  "isHandBoundary": boolean,
  "confidence": number (0-1),
  "handNumber": string or null,
  "reasoning": "Brief explanation"
}

IMPORTANT: Only mark isHandBoundary=true if you're confident this is the START of a new hand.`

const handNumberPrompt = `Extract the hand number from this poker video frame.
Look for text like:
- "Hand #123"
- "핸드 #45"
- "#789"
- Any number that represents the current hand

Respond with ONLY the number, or "null" if no hand number is visible.`

// BoundaryPrompt renders the classification instruction, carrying the
// previous frame's reasoning for temporal continuity when available.
func BoundaryPrompt(previous *Analysis) string {
	var b strings.Builder
	b.WriteString(boundaryPromptHead)
	b.WriteString("\n")
	if previous != nil && strings.TrimSpace(previous.Reasoning) != "" {
		b.WriteString("Previous frame analysis: ")
		b.WriteString(strings.TrimSpace(previous.Reasoning))
	} else {
		b.WriteString("This is the first frame.")
	}
	b.WriteString("\n")
	b.WriteString(boundaryPromptTail)
	return b.String()
}
