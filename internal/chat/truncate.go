package chat

// Truncate caps a string at limit characters (runes, not bytes, so a cap
// never splits a multi-byte character). A non-positive limit disables
// truncation. Live payloads are rendered directly to a UI, so they get a
// tighter cap than persisted content, which favors completeness.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
