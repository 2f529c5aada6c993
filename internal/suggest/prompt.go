package suggest

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/sheetloom-cli/internal/analysis"
)

// MaxDirectives is the most chart directives requested from the model.
const MaxDirectives = 3

// BuildPrompt asks for up to MaxDirectives chart directives over the given columns.
func BuildPrompt(cols []analysis.TypedColumn) string {
	var b strings.Builder
	b.WriteString("You are a data visualization assistant.\n")
	b.WriteString("A CSV sheet has these columns:\n")
	for _, c := range cols {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Kind)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Suggest at most %d charts that would be informative for this data.\n", MaxDirectives)
	b.WriteString("Reply with ONLY a JSON array. Each element is an object with fields:\n")
	b.WriteString(`  "kind": one of "scatter", "line", "bar", "histogram", "pie", "radar" (required)` + "\n")
	b.WriteString(`  "x": column name (required, omit for radar)` + "\n")
	b.WriteString(`  "y": column name (optional)` + "\n")
	b.WriteString(`  "cols": array of 3 to 6 numeric column names (radar only)` + "\n")
	b.WriteString(`  "agg": one of "sum", "average", "count" (optional, bar and pie)` + "\n")
	b.WriteString(`  "title": short chart title (optional)` + "\n")
	b.WriteString("Use column names exactly as listed. Do not add commentary.\n")
	return b.String()
}
