package sheet

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrLocked is returned when plain content edits are attempted on an encrypted sheet.
	ErrLocked = errors.New("sheet is encrypted; unlock before editing")
	// ErrNotFound is returned by stores when no sheet has the requested ID.
	ErrNotFound = errors.New("sheet not found")
)

// Sheet is a named block of raw CSV text. Content holds plaintext CSV when
// Encrypted is false and a base64 ciphertext blob when it is true.
//
// Values are treated as immutable: the With* helpers return modified copies and
// persistence is a separate, explicit step.
type Sheet struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Encrypted bool      `json:"encrypted"`
	VaultRef  string    `json:"vault_ref,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an unsaved sheet with the given name and empty content.
func New(name string) Sheet {
	now := time.Now()
	return Sheet{
		Name:      strings.TrimSpace(name),
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// clone copies the sheet including its tag slice so callers never share backing arrays.
func (s Sheet) clone() Sheet {
	out := s
	out.Tags = make([]string, len(s.Tags))
	copy(out.Tags, s.Tags)
	return out
}

func (s Sheet) touched() Sheet {
	s.UpdatedAt = time.Now()
	return s
}

// WithName returns a copy of s renamed to name.
func (s Sheet) WithName(name string) Sheet {
	out := s.clone()
	out.Name = strings.TrimSpace(name)
	return out.touched()
}

// WithContent returns a copy of s holding the new plaintext content.
// Encrypted sheets can only change content through the vault.
func (s Sheet) WithContent(content string) (Sheet, error) {
	if s.Encrypted {
		return s, ErrLocked
	}
	out := s.clone()
	out.Content = content
	return out.touched(), nil
}

// WithTag appends tag. Duplicates are allowed.
func (s Sheet) WithTag(tag string) Sheet {
	out := s.clone()
	out.Tags = append(out.Tags, tag)
	return out.touched()
}

// WithoutTag removes the first occurrence of tag, if any.
func (s Sheet) WithoutTag(tag string) Sheet {
	out := s.clone()
	for i, t := range out.Tags {
		if t == tag {
			out.Tags = append(out.Tags[:i], out.Tags[i+1:]...)
			return out.touched()
		}
	}
	return out
}

// WithTags replaces the whole tag list.
func (s Sheet) WithTags(tags []string) Sheet {
	out := s.clone()
	out.Tags = make([]string, len(tags))
	copy(out.Tags, tags)
	return out.touched()
}

// WithSealed returns a copy carrying ciphertext and the vault reference that unlocks it.
func (s Sheet) WithSealed(ciphertext, vaultRef string) Sheet {
	out := s.clone()
	out.Content = ciphertext
	out.Encrypted = true
	out.VaultRef = vaultRef
	return out.touched()
}

// WithPlain returns a copy holding plaintext with encryption cleared.
func (s Sheet) WithPlain(content string) Sheet {
	out := s.clone()
	out.Content = content
	out.Encrypted = false
	out.VaultRef = ""
	return out.touched()
}

// HasTag reports whether tag is present.
func (s Sheet) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
