package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/db"
)

// SQLiteStore keeps manifests in the projects table. Private legacy media
// still lives on disk under root.
type SQLiteStore struct {
	projectDirs
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(conn *sql.DB, root string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, apperr.Classify("create projects directory", err)
	}
	return &SQLiteStore{projectDirs: projectDirs{root: root}, db: conn, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, p *Project) (string, error) {
	safe, data, err := prepare(p)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (title, manifest, item_count, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET
			manifest = excluded.manifest,
			item_count = excluded.item_count,
			saved_at = excluded.saved_at
	`, safe, string(data), len(p.Items), p.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", db.Classify("save manifest", err)
	}
	return s.dir(safe), nil
}

func (s *SQLiteStore) Load(ctx context.Context, title string) (*Project, error) {
	var manifest string
	err := s.db.QueryRowContext(ctx, "SELECT manifest FROM projects WHERE title = ?", SanitizeTitle(title)).Scan(&manifest)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %q: %w", title, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, db.Classify("load manifest", err)
	}
	return DecodeManifest([]byte(manifest))
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT title, item_count, saved_at FROM projects ORDER BY title")
	if err != nil {
		return nil, db.Classify("list projects", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var savedAt string
		if err := rows.Scan(&sum.Title, &sum.ItemCount, &savedAt); err != nil {
			return nil, db.Classify("scan project", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
			sum.SavedAt = t
		} else if s.logger != nil {
			s.logger.Warn("bad saved_at", "project", sum.Title, "value", savedAt)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list projects", err)
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, title string) error {
	safe := SanitizeTitle(title)
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE title = ?", safe)
	if err != nil {
		return db.Classify("delete manifest", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.Classify("delete manifest", err)
	}
	if n == 0 {
		return fmt.Errorf("project %q: %w", safe, apperr.ErrNotFound)
	}
	return s.removePrivate(safe)
}

// ImportFiles copies manifests found on disk into the table. Titles already
// present are left alone. It returns how many were imported.
func (s *SQLiteStore) ImportFiles(ctx context.Context, files *FileStore) (int, error) {
	summaries, err := files.List(ctx)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, sum := range summaries {
		if sum.Corrupt {
			continue
		}
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE title = ?", sum.Title).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return imported, db.Classify("check project", err)
		}
		p, err := files.Load(ctx, sum.Title)
		if err != nil {
			return imported, err
		}
		p.Title = sum.Title
		if _, err := s.Save(ctx, p); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
