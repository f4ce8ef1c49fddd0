// Package media is the content-addressed blob store. Blobs are write-once and
// shared by every project; there is no delete.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sync/singleflight"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/logging"
	"github.com/reelforge/reelforge-agent/internal/metrics"
)

const tmpDirName = ".tmp"

// Blobs is the read/write surface other packages depend on.
type Blobs interface {
	Put(ctx context.Context, data []byte, ext string) (Key, error)
	Get(ctx context.Context, key Key) ([]byte, error)
	Has(key Key) bool
}

type Store struct {
	dir          string
	minFreeBytes uint64
	logger       *slog.Logger
	group        singleflight.Group

	// freeBytes is swapped in tests.
	freeBytes func(path string) (uint64, error)
}

type Stats struct {
	Blobs     int    `json:"blobs"`
	Bytes     int64  `json:"bytes"`
	FreeBytes uint64 `json:"free_bytes"`
}

// NewStore opens (creating if needed) a blob store rooted at dir. A non-zero
// minFreeBytes makes Put refuse to write when the volume is that close to
// full.
func NewStore(dir string, minFreeBytes uint64, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, tmpDirName), 0755); err != nil {
		return nil, apperr.Classify("create media directory", err)
	}
	return &Store{
		dir:          dir,
		minFreeBytes: minFreeBytes,
		logger:       logger,
		freeBytes:    diskFree,
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns where key lives on disk. Callers must have validated key.
func (s *Store) Path(key Key) string {
	return filepath.Join(s.dir, string(key))
}

// Put stores data under its content key. Storing bytes that are already
// present is a successful no-op. Concurrent puts of the same key all succeed
// and leave exactly one blob.
func (s *Store) Put(ctx context.Context, data []byte, ext string) (Key, error) {
	key, err := ComputeKey(data, ext)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	v, err, _ := s.group.Do(string(key), func() (any, error) {
		return s.write(key, data)
	})
	if err != nil {
		metrics.IncBlobPut(metrics.OutcomeError)
		return "", err
	}

	if stored := v.(bool); stored {
		metrics.IncBlobPut(metrics.OutcomeStored)
		metrics.AddBlobBytes(len(data))
		if s.logger != nil {
			s.logger.Debug("blob stored", "key", key, "size", logging.Bytes(int64(len(data))))
		}
	} else {
		metrics.IncBlobPut(metrics.OutcomeDedup)
	}
	return key, nil
}

// write publishes data at key. It reports false when another writer got
// there first.
func (s *Store) write(key Key, data []byte) (bool, error) {
	final := s.Path(key)
	if _, err := os.Stat(final); err == nil {
		return false, nil
	}

	if err := s.checkFree(len(data)); err != nil {
		return false, err
	}

	pf, err := renameio.NewPendingFile(final,
		renameio.WithTempDir(filepath.Join(s.dir, tmpDirName)),
		renameio.WithPermissions(0644))
	if err != nil {
		return false, apperr.Classify("create pending blob", err)
	}
	defer pf.Cleanup()

	if _, err := pf.Write(data); err != nil {
		return false, apperr.Classify("write blob", err)
	}
	if err := pf.Sync(); err != nil {
		return false, apperr.Classify("sync blob", err)
	}

	// Link fails if the name exists, so a finished blob is never replaced.
	if err := os.Link(pf.Name(), final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, apperr.Classify("publish blob", err)
	}
	return true, nil
}

func (s *Store) checkFree(need int) error {
	if s.minFreeBytes == 0 || s.freeBytes == nil {
		return nil
	}
	free, err := s.freeBytes(s.dir)
	if err != nil {
		// Not every filesystem reports usage; the write itself still maps ENOSPC.
		if s.logger != nil {
			s.logger.Debug("disk usage unavailable", "error", err)
		}
		return nil
	}
	if free < s.minFreeBytes+uint64(need) {
		return fmt.Errorf("only %s free: %w", logging.Bytes(int64(free)), apperr.ErrStorageExhausted)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key Key) ([]byte, error) {
	if !key.Valid() {
		return nil, apperr.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return nil, apperr.Classify("read blob "+string(key), err)
	}
	return data, nil
}

// Open returns the blob file for streaming. The caller closes it.
func (s *Store) Open(key Key) (*os.File, error) {
	if !key.Valid() {
		return nil, apperr.ErrNotFound
	}
	f, err := os.Open(s.Path(key))
	if err != nil {
		return nil, apperr.Classify("open blob "+string(key), err)
	}
	return f, nil
}

func (s *Store) Has(key Key) bool {
	if !key.Valid() {
		return false
	}
	info, err := os.Stat(s.Path(key))
	return err == nil && info.Mode().IsRegular()
}

// Stats counts stored blobs and reports free space on the volume.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return st, apperr.Classify("list blobs", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !Key(e.Name()).Valid() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		st.Blobs++
		st.Bytes += info.Size()
	}
	if s.freeBytes != nil {
		if free, err := s.freeBytes(s.dir); err == nil {
			st.FreeBytes = free
		}
	}
	return st, nil
}

func diskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
