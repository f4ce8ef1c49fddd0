package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/project"
)

// PrivateFiles resolves files kept inside a project directory.
type PrivateFiles interface {
	PrivateFile(title, rel string) (string, error)
}

// Server streams stored media to the preview player with byte-range
// support. Errors are returned to the caller for rendering; once headers are
// written it returns nil.
type Server struct {
	blobs    *media.Store
	projects PrivateFiles
	logger   *slog.Logger
}

func NewServer(blobs *media.Store, projects PrivateFiles, logger *slog.Logger) *Server {
	return &Server{blobs: blobs, projects: projects, logger: logger}
}

// ServeBlob streams a content-addressed blob. Blobs never change, so they
// are cached forever and tagged with their key.
func (s *Server) ServeBlob(w http.ResponseWriter, r *http.Request, key media.Key) error {
	f, err := s.blobs.Open(key)
	if err != nil {
		return err
	}
	defer f.Close()

	etag := `"` + key.String() + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return s.serve(w, r, f, media.ContentType(key.String()))
}

// ServePrivate streams a file from a project's private directory.
func (s *Server) ServePrivate(w http.ResponseWriter, r *http.Request, title, rel string) error {
	path, err := s.projects.PrivateFile(title, rel)
	if err != nil {
		return err
	}
	if filepath.Clean(filepath.FromSlash(rel)) == project.ManifestFilename {
		return apperr.ErrNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		return apperr.Classify("open private media", err)
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "no-cache")
	return s.serve(w, r, f, media.ContentType(path))
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, f *os.File, contentType string) error {
	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat media: %w", err)
	}
	if !stat.Mode().IsRegular() {
		return apperr.ErrNotFound
	}
	size := stat.Size()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rng, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	// A malformed Range header is ignored and the whole file is sent.
	if err != nil || rng == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			s.copy(w, f, size)
		}
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", rng.ContentLength()))
	w.Header().Set("Content-Range", rng.ContentRange(size))
	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek media: %w", err)
	}
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		s.copy(w, f, rng.ContentLength())
	}
	return nil
}

func (s *Server) copy(w io.Writer, f *os.File, n int64) {
	if _, err := io.CopyN(w, f, n); err != nil && s.logger != nil {
		// usually the player seeking away mid-stream
		s.logger.Debug("media stream interrupted", "error", err)
	}
}
