package media

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

// HashLength is the number of hex characters of the sha256 digest kept in a
// key. Collisions at this length are an accepted risk.
const HashLength = 16

// Key names a stored blob: <16 hex chars><.ext lower-case>.
type Key string

var (
	keyPattern = regexp.MustCompile(`^[0-9a-f]{16}\.[a-z0-9]{1,10}$`)
	extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

func (k Key) String() string { return string(k) }

// Valid reports whether k is safe to use as a file name inside the store.
func (k Key) Valid() bool {
	return keyPattern.MatchString(string(k))
}

// Ext returns the extension including the leading dot.
func (k Key) Ext() string {
	return filepath.Ext(string(k))
}

// ParseKey validates s as a key. Malformed keys report ErrNotFound, so a
// lookup path never leaves the store directory.
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !k.Valid() {
		return "", apperr.ErrNotFound
	}
	return k, nil
}

// NormalizeExt lower-cases ext and adds the leading dot. It also accepts a
// full file name and keeps only its extension.
func NormalizeExt(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return "", apperr.Invalid("missing file extension")
	}
	if strings.Contains(ext, ".") && !strings.HasPrefix(ext, ".") {
		ext = filepath.Ext(ext)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !extPattern.MatchString(ext) {
		return "", apperr.Invalid("unsupported file extension %q", ext)
	}
	return ext, nil
}

// ComputeKey derives the key for data. The same bytes and extension always
// give the same key.
func ComputeKey(data []byte, ext string) (Key, error) {
	norm, err := NormalizeExt(ext)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return Key(hex.EncodeToString(sum[:])[:HashLength] + norm), nil
}
