package project

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

// FileStore keeps each manifest at <root>/<title>/project.json.
type FileStore struct {
	projectDirs
	logger *slog.Logger
}

func NewFileStore(root string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, apperr.Classify("create projects directory", err)
	}
	return &FileStore{projectDirs: projectDirs{root: root}, logger: logger}, nil
}

func (s *FileStore) Save(ctx context.Context, p *Project) (string, error) {
	safe, data, err := prepare(p)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := s.dir(safe)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperr.Classify("create project directory", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, ManifestFilename), data, 0644); err != nil {
		return "", apperr.Classify("write manifest", err)
	}
	return dir, nil
}

func (s *FileStore) Load(ctx context.Context, title string) (*Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir(SanitizeTitle(title)), ManifestFilename))
	if err != nil {
		return nil, apperr.Classify("read manifest", err)
	}
	return DecodeManifest(data)
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, apperr.Classify("list projects", err)
	}

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, e.Name(), ManifestFilename))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, apperr.Classify("read manifest", err)
		}

		p, err := DecodeManifest(data)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("unreadable manifest", "project", e.Name(), "error", err)
			}
			out = append(out, Summary{Title: e.Name(), Corrupt: true})
			continue
		}
		out = append(out, Summary{Title: e.Name(), ItemCount: len(p.Items), SavedAt: p.SavedAt})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	safe := SanitizeTitle(title)
	if _, err := os.Stat(filepath.Join(s.dir(safe), ManifestFilename)); err != nil {
		return apperr.Classify("delete project "+safe, err)
	}
	return s.removePrivate(safe)
}
