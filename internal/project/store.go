package project

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

// ManifestFilename is the record name inside a project directory.
const ManifestFilename = "project.json"

// Store persists manifests keyed by sanitized title.
type Store interface {
	// Save writes p in full, replacing any manifest with the same title, and
	// returns the project's location.
	Save(ctx context.Context, p *Project) (string, error)
	// Load returns ErrNotFound for an unknown title and ErrCorrupt for a
	// record that does not parse.
	Load(ctx context.Context, title string) (*Project, error)
	List(ctx context.Context) ([]Summary, error)
	// Delete removes the manifest and the project's private files. Shared
	// blobs are never touched.
	Delete(ctx context.Context, title string) error
	// PrivateFile resolves a file inside the project's private directory.
	PrivateFile(title, rel string) (string, error)
}

// projectDirs resolves per-project directories under root. Both backends
// keep private legacy media there.
type projectDirs struct {
	root string
}

func (d projectDirs) dir(safeTitle string) string {
	return filepath.Join(d.root, safeTitle)
}

// PrivateFile resolves rel against the project directory, refusing anything
// that escapes it. The file need not exist.
func (d projectDirs) PrivateFile(title, rel string) (string, error) {
	dir := d.dir(SanitizeTitle(title))
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", apperr.ErrNotFound
	}
	return filepath.Join(dir, clean), nil
}

func (d projectDirs) removePrivate(safeTitle string) error {
	if err := os.RemoveAll(d.dir(safeTitle)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Classify("remove project directory", err)
	}
	return nil
}

// prepare validates p and returns the manifest bytes under its safe title.
func prepare(p *Project) (string, []byte, error) {
	if p == nil {
		return "", nil, apperr.Invalid("nil project")
	}
	safe := SanitizeTitle(p.Title)
	if _, ok := ParsePlatform(string(p.Platform)); !ok {
		return "", nil, apperr.Invalid("unknown platform %q", p.Platform)
	}
	if !p.Duration.MatchAudio && p.Duration.Seconds <= 0 {
		return "", nil, apperr.Invalid("fixed duration must be positive")
	}
	for i, it := range p.Items {
		if it.SourceRef == "" && it.PrivatePath == "" {
			return "", nil, apperr.Invalid("item %d has no media reference", i)
		}
	}

	rec := *p
	rec.Title = safe
	data, err := EncodeManifest(&rec)
	if err != nil {
		return "", nil, err
	}
	return safe, data, nil
}
