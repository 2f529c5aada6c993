package utils

import "unicode/utf8"

// EstimateTokens approximates a model token count at four characters per
// token, rounding up.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// Clip shortens text to about maxTokens tokens, marking the cut with an
// ellipsis. It never splits a multi-byte character.
func Clip(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * 4
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i] + "…"
		}
		n++
	}
	return text
}
