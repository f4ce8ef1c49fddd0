package export

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

// ClipName turns an uploaded file name into an EDL clip or export file name.
// Names arrive decomposed from macOS pickers and are recomposed first, so
// Hangul and accented letters survive as single runes. Control characters
// are dropped, punctuation editors choke on becomes "_", and the result is
// cut to maxLen runes. It may return "".
func ClipName(fileName string, maxLen int) string {
	var b strings.Builder
	underscore := false
	for _, r := range norm.NFC.String(fileName) {
		switch {
		case unicode.IsControl(r):
			continue
		case clipRune(r):
			b.WriteRune(r)
			underscore = r == '_'
		case !underscore:
			b.WriteRune('_')
			underscore = true
		}
	}

	name := []rune(strings.Trim(b.String(), " _"))
	if maxLen > 0 && len(name) > maxLen {
		name = []rune(strings.TrimRight(string(name[:maxLen]), " _"))
	}
	return string(name)
}

func clipRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" -_.,()", r)
}

// ValidateOutputDir accepts only an existing directory given as a clean path
// with no ".." element.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return apperr.Invalid("output_dir is required")
	}
	if slices.Contains(strings.Split(filepath.ToSlash(dir), "/"), "..") {
		return apperr.Invalid("output_dir cannot contain path traversal")
	}
	if filepath.Clean(dir) != dir {
		return apperr.Invalid("output_dir must be a clean path")
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apperr.Invalid("output_dir does not exist")
	case err != nil:
		return apperr.Classify("stat output_dir", err)
	case !info.IsDir():
		return apperr.Invalid("output_dir is not a directory")
	}
	return nil
}
