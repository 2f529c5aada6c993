// Package parser converts tabular files into the CSV text stored in a sheet.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Parser converts one file format to CSV text.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte) (string, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a format is not supported yet.
var ErrUnsupported = errors.New("unsupported sheet format")

// ParseFile selects a parser based on filename and returns CSV content.
func ParseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse converts data using the parser registered for filename.
func Parse(filename string, data []byte) (string, error) {
	for _, p := range registry {
		if p.CanParse(filename) {
			out, err := p.Parse(data)
			if err != nil {
				return "", fmt.Errorf("parse %s: %w", filename, err)
			}
			return out, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(filename))
}

func init() {
	Register(txtParser{})
	Register(csvParser{})
	Register(markdownParser{})
	Register(xlsxParser{})
}
