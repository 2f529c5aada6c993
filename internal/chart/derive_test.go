package chart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/sheetloom-cli/internal/analysis"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) *analysis.Table {
	t.Helper()
	tbl, err := analysis.Parse(text)
	require.NoError(t, err)
	return tbl
}

func derive(t *testing.T, tbl *analysis.Table, ds []Directive) []Spec {
	t.Helper()
	specs, err := Derive(context.Background(), tbl, ds, nil, nil)
	require.NoError(t, err)
	return specs
}

func TestScatterKeepsSourceOrder(t *testing.T) {
	tbl := mustParse(t, "h1,h2\n1,2\n3,4\n5,6")
	specs := derive(t, tbl, []Directive{{Kind: KindScatter, X: "h1", Y: "h2"}})
	require.Len(t, specs, 1)
	require.Equal(t, []Point{{1, 2}, {3, 4}, {5, 6}}, specs[0].Points)
	require.Equal(t, "h2 vs h1", specs[0].Title)
}

func TestScatterDropsNonNumericPairs(t *testing.T) {
	tbl := mustParse(t, "x,y\n1,2\nz,4\n5,\n7,8")
	specs := derive(t, tbl, []Directive{{Kind: KindScatter, X: "x", Y: "y"}})
	require.Len(t, specs, 1)
	require.Equal(t, []Point{{1, 2}, {7, 8}}, specs[0].Points)
}

func TestLineSortsStablyByX(t *testing.T) {
	tbl := mustParse(t, "x,y\n3,1\n1,2\n3,3\n2,4\n1,5")
	specs := derive(t, tbl, []Directive{{Kind: KindLine, X: "x", Y: "y", Title: "trend"}})
	require.Len(t, specs, 1)
	require.Equal(t, "trend", specs[0].Title)
	require.Equal(t, []Point{{1, 2}, {1, 5}, {2, 4}, {3, 1}, {3, 3}}, specs[0].Points)
}

func TestBarCountDistinctKeys(t *testing.T) {
	tbl := mustParse(t, "h1,h2\n1,2\n3,4\n5,6")
	specs := derive(t, tbl, []Directive{{Kind: KindBar, X: "h1", Agg: "count"}})
	require.Len(t, specs, 1)
	require.Equal(t, []Bar{{"1", 1}, {"3", 1}, {"5", 1}}, specs[0].Bars)
}

func TestBarAggregations(t *testing.T) {
	tbl := mustParse(t, "team,score\nb,10\na,1\nb,x\na,3\nB,7")

	sum := derive(t, tbl, []Directive{{Kind: KindBar, X: "team", Y: "score", Agg: "sum"}})
	require.Len(t, sum, 1)
	// "b,x" contributes a unit value; keys are case-sensitive and sorted.
	require.Equal(t, []Bar{{"B", 7}, {"a", 4}, {"b", 11}}, sum[0].Bars)

	avg := derive(t, tbl, []Directive{{Kind: KindBar, X: "team", Y: "score", Agg: "average"}})
	require.Equal(t, []Bar{{"B", 7}, {"a", 2}, {"b", 5.5}}, avg[0].Bars)

	cnt := derive(t, tbl, []Directive{{Kind: KindBar, X: "team", Y: "score"}})
	require.Equal(t, []Bar{{"B", 1}, {"a", 2}, {"b", 2}}, cnt[0].Bars)
	require.Equal(t, "count of score by team", cnt[0].Title)
}

func TestPieMatchesBarGrouping(t *testing.T) {
	tbl := mustParse(t, "fruit,kg\npear,2\napple,1\npear,3")
	specs := derive(t, tbl, []Directive{{Kind: KindPie, X: "fruit", Y: "kg", Agg: "sum"}})
	require.Len(t, specs, 1)
	require.Equal(t, []Slice{{"apple", 1}, {"pear", 5}}, specs[0].Slices)
	require.Empty(t, specs[0].Bars)
}

func TestHistogramBinsAndMass(t *testing.T) {
	for _, n := range []int{1, 4, 10, 26, 30, 100} {
		var b strings.Builder
		b.WriteString("v\n")
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "%d\n", i*i%17)
		}
		tbl := mustParse(t, b.String())
		specs := derive(t, tbl, []Directive{{Kind: KindHistogram, X: "v"}})
		require.Len(t, specs, 1, "n=%d", n)
		require.Len(t, specs[0].Points, BinCount(n), "n=%d", n)

		total := 0.0
		for _, p := range specs[0].Points {
			total += p.Y
		}
		require.Equal(t, float64(n), total, "n=%d", n)
	}
	require.Equal(t, 5, BinCount(24))
	require.Equal(t, 5, BinCount(30))
	require.Equal(t, 6, BinCount(31))
	require.Equal(t, 10, BinCount(100))
}

func TestHistogramConstantColumn(t *testing.T) {
	tbl := mustParse(t, "v\n4\n4\n4")
	specs := derive(t, tbl, []Directive{{Kind: KindHistogram, X: "v"}})
	require.Len(t, specs, 1)
	require.Len(t, specs[0].Points, 5)
	require.Equal(t, Point{X: 4, Y: 3}, specs[0].Points[0])
	for _, p := range specs[0].Points[1:] {
		require.Zero(t, p.Y)
	}
	require.Equal(t, "v distribution", specs[0].Title)
}

func TestHistogramBinCenters(t *testing.T) {
	tbl := mustParse(t, "v\n0\n10\n5\n2")
	specs := derive(t, tbl, []Directive{{Kind: KindHistogram, X: "v"}})
	require.Len(t, specs, 1)
	want := []Point{{1, 1}, {3, 1}, {5, 1}, {7, 0}, {9, 1}}
	require.Equal(t, want, specs[0].Points)
}

func TestRadarExcludesRowsWithAnyNonNumeric(t *testing.T) {
	tbl := mustParse(t, "A,B,C\n1,2,3\n3,2,1\nx,5,5")
	specs := derive(t, tbl, []Directive{{Kind: KindRadar, Cols: []string{"A", "B", "C"}}})
	require.Len(t, specs, 1)
	require.Equal(t, []string{"A", "B", "C"}, specs[0].Axes)
	require.Equal(t, []RadarEntry{{"A", 2}, {"B", 2}, {"C", 2}}, specs[0].Radar)
}

func TestRadarShapeAndEmpty(t *testing.T) {
	tbl := mustParse(t, "A,B,C,D\n1,2,3,x")
	results := DeriveAll(tbl, []Directive{
		{Kind: KindRadar, Cols: []string{"A", "B"}},
		{Kind: KindRadar, Cols: []string{"A", "B", "C", "D"}},
		{Kind: KindRadar, Cols: []string{"A", "B", "Z"}},
	})
	require.Len(t, results, 3)
	require.True(t, errors.Is(results[0].Err, ErrBadShape))
	require.True(t, errors.Is(results[1].Err, ErrNoData))
	require.True(t, errors.Is(results[2].Err, ErrUnresolvedColumn))
}

func TestFailuresAreIsolatedPerDirective(t *testing.T) {
	tbl := mustParse(t, "x,y\n1,2\n2,3")
	results := DeriveAll(tbl, []Directive{
		{Kind: KindScatter, X: "x", Y: "missing"},
		{Kind: KindBar, X: "x", Agg: "median"},
		{Kind: KindScatter, X: "X", Y: "y"},
		{Kind: "donut", X: "x"},
		{Kind: KindLine, X: "x", Y: "y"},
	})
	require.True(t, errors.Is(results[0].Err, ErrUnresolvedColumn))
	require.True(t, errors.Is(results[1].Err, ErrUnknownAggregation))
	require.True(t, errors.Is(results[2].Err, ErrUnresolvedColumn), "header match is case-sensitive")
	require.True(t, errors.Is(results[3].Err, ErrBadShape))
	require.NoError(t, results[4].Err)

	var dropped []error
	specs, err := Derive(context.Background(), tbl, []Directive{
		{Kind: KindScatter, X: "x", Y: "missing"},
		{Kind: KindLine, X: "x", Y: "y"},
	}, nil, func(err error) { dropped = append(dropped, err) })
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, KindLine, specs[0].Kind)
	require.Len(t, dropped, 1)
	require.ErrorIs(t, dropped[0], ErrUnresolvedColumn)
}

func TestDeriveStopsOnCancelledContext(t *testing.T) {
	tbl := mustParse(t, "x,y\n1,2")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	specs, err := Derive(ctx, tbl, []Directive{{Kind: KindLine, X: "x", Y: "y"}}, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, specs)
}

func TestHistogramOverflowingRangeStaysFinite(t *testing.T) {
	tbl := mustParse(t, "v\n-1e308\n1e308\n0")
	specs := derive(t, tbl, []Directive{{Kind: KindHistogram, X: "v"}})
	require.Len(t, specs, 1)
	require.Len(t, specs[0].Points, 5)
	for _, p := range specs[0].Points {
		require.False(t, math.IsInf(p.X, 0) || math.IsNaN(p.X), "bin centre %v", p.X)
	}
	require.Equal(t, Point{X: -1e308, Y: 3}, specs[0].Points[0])
}

func TestFallbackPicksFirstColumnWithNumbers(t *testing.T) {
	tbl := mustParse(t, "name,note,age\nann,x,31\nbob,7,40")
	d, ok := Fallback(tbl)
	require.True(t, ok)
	require.Equal(t, Directive{Kind: KindHistogram, X: "note", Title: "note distribution"}, d)

	none := mustParse(t, "name,city\nann,oslo\nbob,rome")
	_, ok = Fallback(none)
	require.False(t, ok)
}
