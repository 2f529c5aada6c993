package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Parse keeps comma-separated input as is and rewrites tab-separated input
// as CSV. The delimiter is sniffed from the first line.
func (csvParser) Parse(content []byte) (string, error) {
	text := normalizeNewlines(content)
	first, _, _ := strings.Cut(text, "\n")
	if !strings.Contains(first, "\t") || strings.Contains(first, ",") {
		return text, nil
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read tsv: %w", err)
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
