package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/sheetloom-cli/internal/utils"
)

func TestSafeWriteFileReplacesAtomically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := utils.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	path := filepath.Join(dir, "out.json")
	for _, body := range []string{"first", "second"} {
		if err := utils.SafeWriteFile(path, []byte(body)); err != nil {
			t.Fatalf("SafeWriteFile: %v", err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "second" {
		t.Fatalf("unexpected content %q", b)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"rows": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "\n  \"rows\": 2") {
		t.Fatalf("not indented: %s", b)
	}
	if _, err := utils.PrettyJSON(func() {}); err == nil {
		t.Fatalf("expected marshal error")
	}
}
