package parser

import (
	"errors"
	"strings"
)

// markdownParser extracts the first pipe table of a Markdown document.
type markdownParser struct{}

func (markdownParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

func (markdownParser) Parse(content []byte) (string, error) {
	var records [][]string
	for _, line := range strings.Split(normalizeNewlines(content), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			if len(records) > 0 {
				break
			}
			continue
		}
		cells := splitPipeRow(line)
		if isSeparatorRow(cells) {
			continue
		}
		records = append(records, cells)
	}
	if len(records) == 0 {
		return "", errors.New("no table found")
	}
	return writeCSV(records)
}

func splitPipeRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// isSeparatorRow matches the |---|:--:| line under a table header.
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-:") != "" || !strings.Contains(c, "-") {
			return false
		}
	}
	return len(cells) > 0
}
