package chart

import "github.com/KaramelBytes/sheetloom-cli/internal/analysis"

// Fallback picks a directive without any model: a histogram over the first
// column, in header order, holding at least one numeric cell. ok is false
// when no column has numeric data.
func Fallback(tbl *analysis.Table) (Directive, bool) {
	for j, name := range tbl.Header {
		for i := range tbl.Rows {
			if _, num := tbl.Number(i, j); num {
				return Directive{Kind: KindHistogram, X: name, Title: name + " distribution"}, true
			}
		}
	}
	return Directive{}, false
}
