package sheet

import (
	"errors"
	"testing"
)

func TestWithContentRefusesLockedSheet(t *testing.T) {
	s := New("budget").WithSealed("Y2lwaGVy", "vault_1")
	if _, err := s.WithContent("a,b\n1,2"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	plain, err := New("budget").WithContent("a,b\n1,2")
	if err != nil {
		t.Fatalf("WithContent: %v", err)
	}
	if plain.Content != "a,b\n1,2" {
		t.Fatalf("content = %q", plain.Content)
	}
}

func TestTransformationsDoNotAlias(t *testing.T) {
	orig := New("x").WithTags([]string{"a", "b"})
	tagged := orig.WithTag("a")
	if len(orig.Tags) != 2 {
		t.Fatalf("original mutated: %v", orig.Tags)
	}
	if len(tagged.Tags) != 3 || tagged.Tags[2] != "a" {
		t.Fatalf("duplicates should be kept in order: %v", tagged.Tags)
	}
	removed := tagged.WithoutTag("a")
	if got := removed.Tags; len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("WithoutTag should drop the first occurrence only: %v", got)
	}
	if len(tagged.Tags) != 3 {
		t.Fatalf("tagged mutated: %v", tagged.Tags)
	}
}

func TestSealAndPlainToggleVaultRef(t *testing.T) {
	s := New("x").WithSealed("blob", "vault_9")
	if !s.Encrypted || s.VaultRef != "vault_9" {
		t.Fatalf("sealed sheet = %+v", s)
	}
	p := s.WithPlain("a\n1")
	if p.Encrypted || p.VaultRef != "" || p.Content != "a\n1" {
		t.Fatalf("plain sheet = %+v", p)
	}
	if !s.Encrypted {
		t.Fatalf("original sheet should stay sealed")
	}
}
