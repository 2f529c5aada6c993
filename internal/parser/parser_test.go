package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/sheetloom-cli/internal/parser"
)

func TestParseFileTXT(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("a,b\r\n1,2\r\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := parser.ParseFile(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != "a,b\n1,2\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestParseCSVPassesThrough(t *testing.T) {
	out, err := parser.Parse("hop_harvest.csv", []byte("date,plot\n2024-08-10,A1\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != "date,plot\n2024-08-10,A1\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestParseTSVConvertsToCSV(t *testing.T) {
	out, err := parser.Parse("a.tsv", []byte("name\tnote\nann\thello, world\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "name,note\nann,\"hello, world\""
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestParseMarkdownTable(t *testing.T) {
	doc := "# Harvest\n\nSome notes.\n\n| plot | kg |\n|:-----|---:|\n| A1 | 12 |\n| B3 | 9 |\n\n| other | table |\n"
	out, err := parser.Parse("notes.md", []byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != "plot,kg\nA1,12\nB3,9" {
		t.Fatalf("unexpected output: %q", out)
	}

	if _, err := parser.Parse("empty.md", []byte("# no table here\n")); err == nil {
		t.Fatalf("expected error for markdown without a table")
	}
}

func TestParseUnsupported(t *testing.T) {
	_, err := parser.Parse("report.docx", []byte("x"))
	if !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func writeXLSX(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseXLSXFirstSheet(t *testing.T) {
	data := writeXLSX(t, func(f *excelize.File) {
		if err := f.SetSheetName("Sheet1", "Data"); err != nil {
			t.Fatalf("rename: %v", err)
		}
		if _, err := f.NewSheet("Other"); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		_ = f.SetCellValue("Other", "A1", "wrong")
		_ = f.SetCellValue("Data", "A1", "city")
		_ = f.SetCellValue("Data", "B1", "temp")
		_ = f.SetCellValue("Data", "C1", "ok")
		_ = f.SetCellValue("Data", "A2", "Oslo")
		_ = f.SetCellValue("Data", "C2", true)
		_ = f.SetCellValue("Data", "B3", -3.5)
	})
	out, err := parser.Parse("weather.xlsx", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "city,temp,ok\nOslo,,TRUE\n,-3.5,"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestParseXLSXRejectsEmptyAndBroken(t *testing.T) {
	data := writeXLSX(t, func(*excelize.File) {})
	if _, err := parser.Parse("empty.xlsx", data); err == nil {
		t.Fatalf("expected error for an empty worksheet")
	}
	if _, err := parser.Parse("broken.xlsx", []byte("not a zip")); err == nil {
		t.Fatalf("expected error for a non-zip workbook")
	}
}
