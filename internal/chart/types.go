package chart

import "errors"

// Kind identifies a chart type.
type Kind string

const (
	KindScatter   Kind = "scatter"
	KindLine      Kind = "line"
	KindBar       Kind = "bar"
	KindHistogram Kind = "histogram"
	KindPie       Kind = "pie"
	KindRadar     Kind = "radar"
)

// Known reports whether k is one of the supported chart kinds.
func (k Kind) Known() bool {
	switch k {
	case KindScatter, KindLine, KindBar, KindHistogram, KindPie, KindRadar:
		return true
	}
	return false
}

// Aggregation keywords accepted by bar and pie directives.
const (
	AggSum     = "sum"
	AggAverage = "average"
	AggCount   = "count"
)

var (
	// ErrUnresolvedColumn means a directive names a column missing from the header.
	ErrUnresolvedColumn = errors.New("unresolved column")
	// ErrUnknownAggregation means the agg keyword is not sum, average or count.
	ErrUnknownAggregation = errors.New("unknown aggregation")
	// ErrBadShape covers directives missing required fields for their kind.
	ErrBadShape = errors.New("bad directive shape")
	// ErrNoData means the directive resolved but no row qualified.
	ErrNoData = errors.New("no plottable data")
)

// Directive is an abstract instruction describing what to plot.
// The validate tags describe the wire schema the model is asked to follow.
type Directive struct {
	Kind  Kind     `json:"kind" validate:"required"`
	X     string   `json:"x,omitempty" validate:"required_unless=Kind radar"`
	Y     string   `json:"y,omitempty"`
	Cols  []string `json:"cols,omitempty" validate:"omitempty,dive,required"`
	Agg   string   `json:"agg,omitempty" validate:"omitempty,oneof=sum average count"`
	Title string   `json:"title,omitempty"`
}

// Point is an (x, y) pair for scatter, line and histogram charts.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bar is one aggregated group of a bar chart.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Slice is one aggregated group of a pie chart.
type Slice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// RadarEntry is the mean of one radar axis.
type RadarEntry struct {
	Axis  string  `json:"axis"`
	Value float64 `json:"value"`
}

// Spec is a concrete, plottable chart. Only the fields for Kind are populated.
type Spec struct {
	Kind   Kind         `json:"kind"`
	Title  string       `json:"title"`
	Points []Point      `json:"points,omitempty"`
	Bars   []Bar        `json:"bars,omitempty"`
	Slices []Slice      `json:"slices,omitempty"`
	Radar  []RadarEntry `json:"radar,omitempty"`
	Axes   []string     `json:"axes,omitempty"`
}

// Result is the outcome of deriving a single directive.
type Result struct {
	Directive Directive
	Spec      *Spec
	Err       error
}
