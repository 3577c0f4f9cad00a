package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harrison/devscan/internal/models"
)

// AddRoot registers a scan root. The path is cleaned; registering a path
// that already exists returns the existing record.
func (s *Store) AddRoot(ctx context.Context, path, diskKey string) (models.RootRecord, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if path == "" || path == "." {
		return models.RootRecord{}, fmt.Errorf("root path is required")
	}
	if diskKey == "" {
		diskKey = path
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roots (path, disk_key, dirty) VALUES (?, ?, 1) ON CONFLICT(path) DO NOTHING`,
		path, diskKey)
	if err != nil {
		return models.RootRecord{}, fmt.Errorf("insert root: %w", err)
	}
	return s.rootBy(ctx, `path = ?`, path)
}

// ResolveRoot implements scan.RootResolver.
func (s *Store) ResolveRoot(ctx context.Context, id int64) (models.RootRecord, error) {
	return s.rootBy(ctx, `id = ?`, id)
}

// ListRoots returns every root ordered by path.
func (s *Store) ListRoots(ctx context.Context) ([]models.RootRecord, error) {
	return s.queryRoots(ctx, `SELECT id, path, disk_key, dirty FROM roots ORDER BY path`)
}

// DirtyRoots implements scan.RootResolver.
func (s *Store) DirtyRoots(ctx context.Context) ([]models.RootRecord, error) {
	return s.queryRoots(ctx, `SELECT id, path, disk_key, dirty FROM roots WHERE dirty = 1 ORDER BY path`)
}

// MarkDirty flags a root for the next changed-mode scan.
func (s *Store) MarkDirty(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE roots SET dirty = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark root %d dirty: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("root %d: %w", id, ErrNotFound)
	}
	return nil
}

// MarkClean implements scan.RootResolver.
func (s *Store) MarkClean(ctx context.Context, ids []int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			_, err := tx.ExecContext(ctx,
				`UPDATE roots SET dirty = 0, last_scanned_at = ? WHERE id = ?`, s.now().UTC(), id)
			if err != nil {
				return fmt.Errorf("mark root %d clean: %w", id, err)
			}
		}
		return nil
	})
}

func (s *Store) rootBy(ctx context.Context, where string, arg interface{}) (models.RootRecord, error) {
	var r models.RootRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, path, disk_key, dirty FROM roots WHERE `+where, arg).
		Scan(&r.ID, &r.Path, &r.DiskKey, &r.Dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RootRecord{}, fmt.Errorf("root %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return models.RootRecord{}, fmt.Errorf("query root: %w", err)
	}
	return r, nil
}

func (s *Store) queryRoots(ctx context.Context, query string) ([]models.RootRecord, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	defer rows.Close()

	roots := make([]models.RootRecord, 0)
	for rows.Next() {
		var r models.RootRecord
		if err := rows.Scan(&r.ID, &r.Path, &r.DiskKey, &r.Dirty); err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		roots = append(roots, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roots: %w", err)
	}
	return roots, nil
}
