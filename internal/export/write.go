package export

import (
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

// WriteFile atomically writes edl as <name>.edl inside dir.
func WriteFile(dir, name, edl string) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}
	name = ClipName(name, 120)
	if name == "" {
		name = "reelforge_export"
	}
	path := filepath.Join(dir, name+".edl")
	if err := renameio.WriteFile(path, []byte(edl), 0o644); err != nil {
		return "", apperr.Classify("write edl", err)
	}
	return path, nil
}
