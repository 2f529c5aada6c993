package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedInput is returned when the text does not hold a header plus at least one data row.
var ErrMalformedInput = errors.New("malformed input: need a header and at least one data row")

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// TypedColumn pairs a header name with its inferred kind.
type TypedColumn struct {
	Name string
	Kind Kind
}

// Table is a parsed sheet: the header row followed by data rows.
// Rows may be ragged; Cell returns "" for missing cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Parse splits raw sheet text into rows and cells. Rows end at '\n' (a
// trailing '\r' is dropped) and cells at ','; quotes carry no meaning, so a
// stray '"' never joins lines. Blank lines are skipped.
// Literal two-character "\n" sequences, as stored by some editors, become real line breaks.
func Parse(text string) (*Table, error) {
	text = strings.ReplaceAll(text, `\n`, "\n")

	var records [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, strings.Split(line, ","))
	}
	if len(records) < 2 {
		return nil, ErrMalformedInput
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Index returns the position of the column named exactly name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row i, column j, or "" when the row is too short.
func (t *Table) Cell(i, j int) string {
	row := t.Rows[i]
	if j < 0 || j >= len(row) {
		return ""
	}
	return row[j]
}

// Number returns the numeric value of row i, column j.
func (t *Table) Number(i, j int) (float64, bool) {
	return ParseNumber(t.Cell(i, j))
}

// Columns infers a kind for every header column. A column is numeric only if
// every data cell parses; one stray token makes it categorical.
func (t *Table) Columns() []TypedColumn {
	cols := make([]TypedColumn, len(t.Header))
	for j, name := range t.Header {
		kind := KindNumeric
		for i := range t.Rows {
			if _, ok := t.Number(i, j); !ok {
				kind = KindCategorical
				break
			}
		}
		cols[j] = TypedColumn{Name: name, Kind: kind}
	}
	return cols
}

// ParseNumber reports whether s reads as a finite number with a '.' decimal point.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Markdown renders a compact schema summary suitable for prompts.
func (t *Table) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Rows: %d\n", len(t.Rows)))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(t.Header)))
	b.WriteString("[SCHEMA]\n")
	for j, c := range t.Columns() {
		b.WriteString(fmt.Sprintf("- %s: %s", safeName(c.Name), c.Kind))
		if c.Kind == KindNumeric {
			lo, hi, mean := t.stats(j)
			b.WriteString(fmt.Sprintf(" (min %.4g, max %.4g, mean %.4g)", lo, hi, mean))
		} else {
			b.WriteString(fmt.Sprintf(" (%d distinct)", t.distinct(j)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// stats returns min, max and mean of the numeric cells in column j (Welford mean).
func (t *Table) stats(j int) (lo, hi, mean float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	n := 0
	for i := range t.Rows {
		x, ok := t.Number(i, j)
		if !ok {
			continue
		}
		n++
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
		mean += (x - mean) / float64(n)
	}
	if n == 0 {
		return 0, 0, 0
	}
	return lo, hi, mean
}

func (t *Table) distinct(j int) int {
	seen := map[string]struct{}{}
	for i := range t.Rows {
		seen[t.Cell(i, j)] = struct{}{}
	}
	return len(seen)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
