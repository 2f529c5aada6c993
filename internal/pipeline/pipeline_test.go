package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/sheetloom-cli/internal/chart"
	"github.com/KaramelBytes/sheetloom-cli/internal/metrics"
)

type fixedGenerator struct {
	reply string
	err   error
	calls int
}

func (g *fixedGenerator) Complete(context.Context, string) (string, error) {
	g.calls++
	return g.reply, g.err
}

func TestScatterEndToEnd(t *testing.T) {
	gen := &fixedGenerator{reply: `[{"kind":"scatter","x":"h1","y":"h2"}]`}
	specs, err := New(gen).Generate(context.Background(), `h1,h2\n1,2\n3,4\n5,6`)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, chart.KindScatter, specs[0].Kind)
	require.Equal(t, []chart.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}}, specs[0].Points)
}

func TestMalformedReplyFallsBackToHistogram(t *testing.T) {
	m := metrics.NewCollector("test")
	gen := &fixedGenerator{reply: "I cannot help with that."}
	specs, err := New(gen, WithMetrics(m)).Generate(context.Background(), "name,age\nann,31\nbob,40\ncy,22")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, chart.KindHistogram, specs[0].Kind)
	require.Equal(t, "age distribution", specs[0].Title)
	require.Len(t, specs[0].Points, 5)
	require.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActivations))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ChartsProduced.WithLabelValues("histogram")))
}

func TestAllCategoricalYieldsNoCharts(t *testing.T) {
	gen := &fixedGenerator{reply: "[]"}
	specs, err := New(gen).Generate(context.Background(), "name,city\nann,oslo\nbob,rome")
	require.NoError(t, err)
	require.Empty(t, specs)
}

func TestSingleRowInputYieldsNothing(t *testing.T) {
	gen := &fixedGenerator{reply: `[{"kind":"histogram","x":"a"}]`}
	for _, in := range []string{"", "a,b", `a,b\n`} {
		specs, err := New(gen).Generate(context.Background(), in)
		require.NoError(t, err, in)
		require.Empty(t, specs, in)
	}
	require.Zero(t, gen.calls)
}

func TestGeneratorErrorFallsBack(t *testing.T) {
	gen := &fixedGenerator{err: errors.New("connection refused")}
	specs, err := New(gen).Generate(context.Background(), "x\n1\n2\n3")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, "x distribution", specs[0].Title)
}

func TestUnusableDirectivesFallBack(t *testing.T) {
	m := metrics.NewCollector("test")
	gen := &fixedGenerator{reply: `[{"kind":"scatter","x":"nope","y":"v"},{"kind":"radar","cols":["v","v"]}]`}
	specs, err := New(gen, WithMetrics(m)).Generate(context.Background(), "v\n1\n2")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, chart.KindHistogram, specs[0].Kind)
	require.Equal(t, 1.0, testutil.ToFloat64(m.DirectivesDropped.WithLabelValues("unresolved_column")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.DirectivesDropped.WithLabelValues("bad_shape")))
}

func TestPartialFailureKeepsGoodCharts(t *testing.T) {
	gen := &fixedGenerator{reply: `[{"kind":"bar","x":"team","agg":"count"},{"kind":"line","x":"team","y":"ghost"}]`}
	specs, err := New(gen).Generate(context.Background(), "team,pts\na,1\nb,2\na,3")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, []chart.Bar{{Label: "a", Value: 2}, {Label: "b", Value: 1}}, specs[0].Bars)
}

func TestStrayQuoteKeepsLaterRows(t *testing.T) {
	specs, err := New(nil).Generate(context.Background(), "name,val\n\"ann,1\nbob,2\ncy,3")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, "val distribution", specs[0].Title)
	total := 0.0
	for _, p := range specs[0].Points {
		total += p.Y
	}
	require.Equal(t, 3.0, total)
}

func TestHugeRangeHistogramEncodes(t *testing.T) {
	specs, err := New(nil).Generate(context.Background(), "v\n-1e308\n1e308")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	_, err = json.Marshal(specs)
	require.NoError(t, err)
}

func TestNoGeneratorUsesFallback(t *testing.T) {
	specs, err := New(nil).Generate(context.Background(), "label,score\nx,9\ny,1")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, "score distribution", specs[0].Title)
}

func TestCancelledContextAbandonsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fixedGenerator{reply: `[{"kind":"histogram","x":"v"}]`}
	_, err := New(gen).Generate(ctx, "v\n1\n2")
	require.ErrorIs(t, err, context.Canceled)
}

func TestGenerateAsyncDeliversOnce(t *testing.T) {
	gen := &fixedGenerator{reply: `[{"kind":"pie","x":"k"}]`}
	ch := New(gen).GenerateAsync(context.Background(), "k\na\nb\na")
	select {
	case out, ok := <-ch:
		require.True(t, ok)
		require.NoError(t, out.Err)
		require.Len(t, out.Specs, 1)
		require.Equal(t, []chart.Slice{{Label: "a", Value: 2}, {Label: "b", Value: 1}}, out.Specs[0].Slices)
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome delivered")
	}
	_, ok := <-ch
	require.False(t, ok)
}
