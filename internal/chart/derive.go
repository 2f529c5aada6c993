package chart

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/sheetloom-cli/internal/analysis"
	"go.uber.org/zap"
)

// Derive turns directives into chart specs. Directives that fail are logged,
// reported to onDrop when it is set, and skipped; they never stop the
// remaining ones. ctx is checked between directives and its error is the
// only one returned.
func Derive(ctx context.Context, tbl *analysis.Table, directives []Directive, log *zap.Logger, onDrop func(error)) ([]Spec, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var specs []Spec
	err := each(ctx, tbl, directives, func(r Result) {
		if r.Err != nil {
			log.Warn("dropping chart directive",
				zap.String("kind", string(r.Directive.Kind)),
				zap.String("x", r.Directive.X),
				zap.Error(r.Err))
			if onDrop != nil {
				onDrop(r.Err)
			}
			return
		}
		specs = append(specs, *r.Spec)
	})
	if err != nil {
		return nil, err
	}
	return specs, nil
}

// DeriveAll derives every directive independently and returns one Result per directive.
func DeriveAll(tbl *analysis.Table, directives []Directive) []Result {
	out := make([]Result, 0, len(directives))
	_ = each(context.Background(), tbl, directives, func(r Result) { out = append(out, r) })
	return out
}

func each(ctx context.Context, tbl *analysis.Table, directives []Directive, fn func(Result)) error {
	for _, d := range directives {
		if err := ctx.Err(); err != nil {
			return err
		}
		spec, err := deriveOne(tbl, d)
		fn(Result{Directive: d, Spec: spec, Err: err})
	}
	return nil
}

func deriveOne(tbl *analysis.Table, d Directive) (spec *Spec, err error) {
	defer func() {
		if r := recover(); r != nil {
			spec, err = nil, fmt.Errorf("%w: %v", ErrBadShape, r)
		}
	}()
	switch d.Kind {
	case KindScatter:
		return scatter(tbl, d, false)
	case KindLine:
		return scatter(tbl, d, true)
	case KindBar, KindPie:
		return grouped(tbl, d)
	case KindHistogram:
		return histogram(tbl, d)
	case KindRadar:
		return radar(tbl, d)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadShape, d.Kind)
	}
}

func resolve(tbl *analysis.Table, name string) (int, error) {
	if name == "" {
		return -1, fmt.Errorf("%w: missing column name", ErrBadShape)
	}
	idx := tbl.Index(name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %q", ErrUnresolvedColumn, name)
	}
	return idx, nil
}

func scatter(tbl *analysis.Table, d Directive, sorted bool) (*Spec, error) {
	xi, err := resolve(tbl, d.X)
	if err != nil {
		return nil, err
	}
	yi, err := resolve(tbl, d.Y)
	if err != nil {
		return nil, err
	}
	var pts []Point
	for i := range tbl.Rows {
		x, okx := tbl.Number(i, xi)
		y, oky := tbl.Number(i, yi)
		if okx && oky {
			pts = append(pts, Point{X: x, Y: y})
		}
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no numeric pairs for %s/%s", ErrNoData, d.X, d.Y)
	}
	title := d.Title
	if sorted {
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].X < pts[b].X })
		if title == "" {
			title = fmt.Sprintf("%s over %s", d.Y, d.X)
		}
	} else if title == "" {
		title = fmt.Sprintf("%s vs %s", d.Y, d.X)
	}
	return &Spec{Kind: d.Kind, Title: title, Points: pts}, nil
}

type group struct {
	key   string
	value float64
}

// aggregate groups rows by the exact x string and reduces each bucket by agg.
// Rows without a numeric y contribute a unit value.
func aggregate(tbl *analysis.Table, d Directive) ([]group, error) {
	agg := d.Agg
	switch agg {
	case "", AggCount, AggSum, AggAverage:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregation, agg)
	}
	xi, err := resolve(tbl, d.X)
	if err != nil {
		return nil, err
	}
	yi := -1
	if d.Y != "" {
		if yi, err = resolve(tbl, d.Y); err != nil {
			return nil, err
		}
	}

	buckets := map[string][]float64{}
	for i := range tbl.Rows {
		key := tbl.Cell(i, xi)
		v := 1.0
		if yi >= 0 {
			if y, ok := tbl.Number(i, yi); ok {
				v = y
			}
		}
		buckets[key] = append(buckets[key], v)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]group, 0, len(keys))
	for _, k := range keys {
		vals := buckets[k]
		var v float64
		switch agg {
		case AggSum:
			for _, x := range vals {
				v += x
			}
		case AggAverage:
			if len(vals) > 0 {
				for _, x := range vals {
					v += x
				}
				v /= float64(len(vals))
			}
		default:
			// An empty bucket still counts as one unit.
			v = 1
			if len(vals) > 0 {
				v = float64(len(vals))
			}
		}
		out = append(out, group{key: k, value: v})
	}
	return out, nil
}

func grouped(tbl *analysis.Table, d Directive) (*Spec, error) {
	groups, err := aggregate(tbl, d)
	if err != nil {
		return nil, err
	}
	title := d.Title
	if title == "" {
		if d.Y != "" {
			agg := d.Agg
			if agg == "" {
				agg = AggCount
			}
			title = fmt.Sprintf("%s of %s by %s", agg, d.Y, d.X)
		} else {
			title = fmt.Sprintf("count by %s", d.X)
		}
	}
	spec := &Spec{Kind: d.Kind, Title: title}
	for _, g := range groups {
		if d.Kind == KindPie {
			spec.Slices = append(spec.Slices, Slice{Label: g.key, Value: g.value})
		} else {
			spec.Bars = append(spec.Bars, Bar{Label: g.key, Value: g.value})
		}
	}
	return spec, nil
}

// BinCount is the number of histogram bins used for n values.
func BinCount(n int) int {
	b := int(math.Round(math.Sqrt(float64(n))))
	if b < 5 {
		return 5
	}
	return b
}

func histogram(tbl *analysis.Table, d Directive) (*Spec, error) {
	xi, err := resolve(tbl, d.X)
	if err != nil {
		return nil, err
	}
	var vals []float64
	for i := range tbl.Rows {
		if v, ok := tbl.Number(i, xi); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: column %q has no numbers", ErrNoData, d.X)
	}
	sort.Float64s(vals)
	lo, hi := vals[0], vals[len(vals)-1]
	bins := BinCount(len(vals))
	width := (hi - lo) / float64(bins)
	if math.IsInf(width, 0) || math.IsNaN(width) {
		// The range overflows float64; keep every value in the first bin.
		width = 0
	}

	counts := make([]int, bins)
	for _, v := range vals {
		idx := 0
		if width > 0 {
			idx = int(math.Floor((v - lo) / width))
		}
		if idx < 0 {
			idx = 0
		}
		if idx > bins-1 {
			idx = bins - 1
		}
		counts[idx]++
	}

	title := d.Title
	if title == "" {
		title = d.X + " distribution"
	}
	spec := &Spec{Kind: KindHistogram, Title: title, Points: make([]Point, bins)}
	for i, c := range counts {
		spec.Points[i] = Point{X: lo + (float64(i)+0.5)*width, Y: float64(c)}
	}
	return spec, nil
}

func radar(tbl *analysis.Table, d Directive) (*Spec, error) {
	if len(d.Cols) < 3 || len(d.Cols) > 6 {
		return nil, fmt.Errorf("%w: radar needs 3 to 6 columns, got %d", ErrBadShape, len(d.Cols))
	}
	idx := make([]int, len(d.Cols))
	for k, name := range d.Cols {
		i, err := resolve(tbl, name)
		if err != nil {
			return nil, err
		}
		idx[k] = i
	}

	sums := make([]float64, len(idx))
	rows := 0
	vals := make([]float64, len(idx))
	for i := range tbl.Rows {
		ok := true
		for k, j := range idx {
			v, good := tbl.Number(i, j)
			if !good {
				ok = false
				break
			}
			vals[k] = v
		}
		if !ok {
			continue
		}
		for k := range vals {
			sums[k] += vals[k]
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: no row is numeric across %s", ErrNoData, strings.Join(d.Cols, ", "))
	}

	title := d.Title
	if title == "" {
		title = "average of " + strings.Join(d.Cols, ", ")
	}
	spec := &Spec{Kind: KindRadar, Title: title, Axes: append([]string(nil), d.Cols...)}
	for k, name := range d.Cols {
		spec.Radar = append(spec.Radar, RadarEntry{Axis: name, Value: sums[k] / float64(rows)})
	}
	return spec, nil
}
