// Package vault encrypts sheet content at rest under a user password.
//
// Each lock derives a fresh AES-256 key from the password and a random salt
// with PBKDF2-HMAC-SHA256, encrypts the CSV text with AES-CBC, and stores the
// salt and IV as a small JSON record in a SecretStore. The sheet keeps only
// the base64 ciphertext and the record's key.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/KaramelBytes/sheetloom-cli/internal/sheet"
)

const (
	// Iterations is the PBKDF2 work factor.
	Iterations = 10000
	// KeySize is the derived key length in bytes (AES-256).
	KeySize  = 32
	saltSize = 16
)

var (
	// ErrVaultRecordMissing means the sheet's vault record could not be found.
	ErrVaultRecordMissing = errors.New("vault record missing")
	// ErrWrongPasswordOrCorrupt means decryption failed: wrong password or damaged data.
	ErrWrongPasswordOrCorrupt = errors.New("wrong password or corrupt data")
)

// record is the persisted per-lock parameter set.
type record struct {
	Salt string `json:"salt"`
	IV   string `json:"iv"`
}

// Codec locks and unlocks sheets against a SecretStore.
type Codec struct {
	secrets sheet.SecretStore
	now     func() time.Time
}

// New returns a Codec backed by secrets.
func New(secrets sheet.SecretStore) *Codec {
	return &Codec{secrets: secrets, now: time.Now}
}

// DeriveKey stretches password with salt into a 32-byte AES key.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

func (c *Codec) newRef(s sheet.Sheet) string {
	return fmt.Sprintf("vault_%d_%d_%s", s.ID, c.now().UnixNano(), uuid.NewString())
}

// Lock encrypts the sheet's content under password. Sheets that are already
// encrypted or hold only whitespace are returned unchanged.
func (c *Codec) Lock(ctx context.Context, s sheet.Sheet, password string) (sheet.Sheet, error) {
	if s.Encrypted || strings.TrimSpace(s.Content) == "" {
		return s, nil
	}
	return c.seal(ctx, s, s.Content, password)
}

func (c *Codec) seal(ctx context.Context, s sheet.Sheet, plaintext, password string) (sheet.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return s, err
	}
	salt, err := randomBytes(saltSize)
	if err != nil {
		return s, err
	}
	iv, err := randomBytes(aes.BlockSize)
	if err != nil {
		return s, err
	}
	key := DeriveKey(password, salt)
	defer zero(key)
	if err := ctx.Err(); err != nil {
		return s, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return s, fmt.Errorf("init cipher: %w", err)
	}
	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	rec, err := json.Marshal(record{
		Salt: base64.StdEncoding.EncodeToString(salt),
		IV:   base64.StdEncoding.EncodeToString(iv),
	})
	if err != nil {
		return s, fmt.Errorf("marshal vault record: %w", err)
	}
	ref := c.newRef(s)
	if err := c.secrets.Write(ctx, ref, string(rec)); err != nil {
		return s, fmt.Errorf("write vault record: %w", err)
	}
	return s.WithSealed(base64.StdEncoding.EncodeToString(out), ref), nil
}

// Unlock returns the sheet's plaintext. Unencrypted sheets yield their content as-is.
func (c *Codec) Unlock(ctx context.Context, s sheet.Sheet, password string) (string, error) {
	if !s.Encrypted {
		return s.Content, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.VaultRef == "" {
		return "", ErrVaultRecordMissing
	}
	raw, ok, err := c.secrets.Read(ctx, s.VaultRef)
	if err != nil {
		return "", fmt.Errorf("read vault record: %w", err)
	}
	if !ok {
		return "", ErrVaultRecordMissing
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", fmt.Errorf("%w: vault record: %v", ErrWrongPasswordOrCorrupt, err)
	}
	salt, err := base64.StdEncoding.DecodeString(rec.Salt)
	if err != nil {
		return "", fmt.Errorf("%w: salt: %v", ErrWrongPasswordOrCorrupt, err)
	}
	iv, err := base64.StdEncoding.DecodeString(rec.IV)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: bad iv", ErrWrongPasswordOrCorrupt)
	}
	data, err := base64.StdEncoding.DecodeString(s.Content)
	if err != nil {
		return "", fmt.Errorf("%w: content: %v", ErrWrongPasswordOrCorrupt, err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrWrongPasswordOrCorrupt)
	}

	key := DeriveKey(password, salt)
	defer zero(key)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	plain, err = unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not UTF-8", ErrWrongPasswordOrCorrupt)
	}
	return string(plain), nil
}

// Relock re-encrypts an encrypted sheet under a new password with a fresh
// salt, IV and record. The old record is not deleted; its key is returned
// as orphan so the caller can purge it once the new sheet is persisted.
func (c *Codec) Relock(ctx context.Context, s sheet.Sheet, oldPassword, newPassword string) (sheet.Sheet, string, error) {
	if !s.Encrypted {
		locked, err := c.Lock(ctx, s, newPassword)
		return locked, "", err
	}
	plain, err := c.Unlock(ctx, s, oldPassword)
	if err != nil {
		return s, "", err
	}
	orphan := s.VaultRef
	locked, err := c.seal(ctx, s, plain, newPassword)
	if err != nil {
		return s, "", err
	}
	return locked, orphan, nil
}

// Disable decrypts the sheet back to plain content. Like Relock it leaves
// the vault record in place and returns its key as orphan for the caller
// to purge after persisting the plain sheet.
func (c *Codec) Disable(ctx context.Context, s sheet.Sheet, password string) (sheet.Sheet, string, error) {
	if !s.Encrypted {
		return s, "", nil
	}
	plain, err := c.Unlock(ctx, s, password)
	if err != nil {
		return s, "", err
	}
	return s.WithPlain(plain), s.VaultRef, nil
}

// Release deletes the sheet's vault record, if any.
func (c *Codec) Release(ctx context.Context, s sheet.Sheet) error {
	if s.VaultRef == "" {
		return nil
	}
	return c.Purge(ctx, s.VaultRef)
}

// Purge deletes the record stored under ref.
func (c *Codec) Purge(ctx context.Context, ref string) error {
	if err := c.secrets.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete vault record: %w", err)
	}
	return nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrWrongPasswordOrCorrupt)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrWrongPasswordOrCorrupt)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrWrongPasswordOrCorrupt)
		}
	}
	return b[:len(b)-n], nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
