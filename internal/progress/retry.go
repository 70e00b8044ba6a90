package progress

import "strings"

// The agent framework retries some of its own mistakes internally: a
// malformed tool invocation or a hallucinated tool name is re-prompted, not
// fatal. Surfacing each of those as a user-visible failure would fail turns
// that were about to recover. Errors matching these patterns are suppressed
// up to a bounded count, then escalated, never silently lost.
var retryablePatterns = []string{
	"tool call validation failed",
	"is not a valid tool",
	"could not parse llm output",
}

// retryable classifies an error message against the fixed pattern set.
// Matching is case-insensitive substring matching.
func retryable(message string) bool {
	lower := strings.ToLower(message)
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
