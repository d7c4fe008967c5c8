// Package segment splits raw extracted lecture text into bounded chunks
// with controlled overlap so each piece fits a generation backend's
// input limits.
package segment

import "strings"

const (
	DefaultMaxChars     = 12000
	DefaultOverlapChars = 400

	// A paragraph boundary is only honored when it falls at least this
	// far into the window; earlier boundaries would produce
	// pathologically small chunks.
	boundaryFloor = 0.6

	// Rough budget used by TruncateToTokenLimit.
	charsPerToken = 4

	truncationMarker = "\n\n[...content truncated...]"
)

// Chunk cuts text into pieces of at most maxChars characters, preferring
// to break on a paragraph boundary (double newline) when one falls in
// the last 40% of the window. Consecutive chunks overlap by
// overlapChars characters to preserve context across the cut. An
// advance of zero or less terminates the walk so the loop can never
// spin.
func Chunk(text string, maxChars, overlapChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(text) {
		end := start + maxChars
		if end >= len(text) {
			if piece := strings.TrimSpace(text[start:]); piece != "" {
				out = append(out, piece)
			}
			break
		}

		window := text[start:end]
		cut := len(window)
		if idx := strings.LastIndex(window, "\n\n"); idx >= int(float64(maxChars)*boundaryFloor) {
			cut = idx
		}

		if piece := strings.TrimSpace(window[:cut]); piece != "" {
			out = append(out, piece)
		}

		advance := cut - overlapChars
		if advance <= 0 {
			break
		}
		start += advance
	}
	return out
}

// TruncateToTokenLimit enforces an approximate token budget of four
// characters per token. The cut lands on the latest paragraph boundary
// within budget, falling back to a sentence end, then a word boundary;
// a human-readable marker is appended so downstream prompts can tell
// the input was shortened.
func TruncateToTokenLimit(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	budget := maxTokens * charsPerToken
	if len(text) <= budget {
		return text
	}

	window := text[:budget]
	cut := -1

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		cut = idx
	}
	if cut < 0 {
		cut = lastSentenceEnd(window)
	}
	if cut < 0 {
		if idx := strings.LastIndexAny(window, " \t\n"); idx > 0 {
			cut = idx
		}
	}
	if cut <= 0 {
		cut = budget
	}

	return strings.TrimRight(window[:cut], " \t\n") + truncationMarker
}

func lastSentenceEnd(s string) int {
	best := -1
	for _, sep := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if idx := strings.LastIndex(s, sep); idx > best {
			best = idx + 1
		}
	}
	return best
}
