package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/sheetloom-cli/internal/analysis"
	"github.com/KaramelBytes/sheetloom-cli/internal/chart"
)

type stubGenerator struct {
	reply  string
	err    error
	prompt string
}

func (s *stubGenerator) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func table(t *testing.T) *analysis.Table {
	t.Helper()
	tbl, err := analysis.Parse("city,temp,rain\noslo,4,80\nrome,19,40")
	require.NoError(t, err)
	return tbl
}

func TestSuggestParsesDirectives(t *testing.T) {
	gen := &stubGenerator{reply: "Sure! Here you go:\n```json\n" +
		`[{"kind":"bar","x":"city","y":"temp","agg":"average","title":"Temp by city"},` +
		`{"kind":"radar","cols":["temp","rain","temp"]}]` + "\n```"}
	ds, err := New(gen, nil).Suggest(context.Background(), table(t))
	require.NoError(t, err)
	require.Equal(t, []chart.Directive{
		{Kind: chart.KindBar, X: "city", Y: "temp", Agg: "average", Title: "Temp by city"},
		{Kind: chart.KindRadar, Cols: []string{"temp", "rain", "temp"}},
	}, ds)

	require.Contains(t, gen.prompt, "- city (categorical)")
	require.Contains(t, gen.prompt, "- temp (numeric)")
	require.Contains(t, gen.prompt, "at most 3 charts")
}

func TestParseWithoutArrayIsUnavailable(t *testing.T) {
	c := New(nil, nil)
	for _, raw := range []string{"", "no charts today", "] backwards [", "[not json]", "[]"} {
		_, err := c.Parse(raw)
		require.True(t, errors.Is(err, ErrSuggestionUnavailable), "raw=%q err=%v", raw, err)
	}
}

func TestParseDropsBadElementsIndependently(t *testing.T) {
	raw := `[
		{"kind":"donut","x":"city"},
		{"kind":"scatter"},
		{"kind":"bar","x":"city","agg":"median"},
		42,
		{"kind":"line","x":"temp","y":"rain"}
	]`
	ds, err := New(nil, nil).Parse(raw)
	require.NoError(t, err)
	require.Equal(t, []chart.Directive{{Kind: chart.KindLine, X: "temp", Y: "rain"}}, ds)
}

func TestParseAllUnknownKindsIsUnavailable(t *testing.T) {
	_, err := New(nil, nil).Parse(`[{"kind":"donut","x":"a"},{"kind":"sankey","x":"b"}]`)
	require.ErrorIs(t, err, ErrSuggestionUnavailable)
}

func TestSuggestPropagatesGeneratorError(t *testing.T) {
	boom := errors.New("runtime down")
	_, err := New(&stubGenerator{err: boom}, nil).Suggest(context.Background(), table(t))
	require.ErrorIs(t, err, boom)
}

func TestSuggestHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&stubGenerator{reply: `[{"kind":"histogram","x":"temp"}]`}, nil).Suggest(ctx, table(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildPromptListsEveryColumn(t *testing.T) {
	p := BuildPrompt([]analysis.TypedColumn{{Name: "a", Kind: analysis.KindNumeric}, {Name: "b", Kind: analysis.KindCategorical}})
	require.True(t, strings.Index(p, "- a (numeric)") < strings.Index(p, "- b (categorical)"))
	require.Contains(t, p, "JSON array")
}

func TestExtractArray(t *testing.T) {
	s, ok := extractArray(`x [1, [2]] y`)
	require.True(t, ok)
	require.Equal(t, `[1, [2]]`, s)
	_, ok = extractArray("nothing")
	require.False(t, ok)
}
