package suggest

import "strings"

// extractArray returns the span from the first '[' to the last ']' in text.
func extractArray(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
