package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/sheetloom-cli/internal/utils"
)

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{
		"":                        0,
		"ab":                      1,
		"abcd":                    1,
		"abcde":                   2,
		strings.Repeat("a", 4000): 1000,
		"åäöü":                    1,
	}
	for in, want := range cases {
		if got := utils.EstimateTokens(in); got != want {
			t.Errorf("EstimateTokens(%.10q) = %d, want %d", in, got, want)
		}
	}
}

func TestClip(t *testing.T) {
	if got := utils.Clip("short", 10); got != "short" {
		t.Fatalf("short text changed: %q", got)
	}
	if got := utils.Clip("x", 0); got != "" {
		t.Fatalf("zero limit should empty text, got %q", got)
	}
	got := utils.Clip(strings.Repeat("é", 10), 1)
	if got != "éééé…" {
		t.Fatalf("unexpected clip %q", got)
	}
	long := strings.Repeat("abcd ", 1000)
	if n := utils.EstimateTokens(strings.TrimSuffix(utils.Clip(long, 300), "…")); n != 300 {
		t.Fatalf("clipped to %d tokens, want 300", n)
	}
}
