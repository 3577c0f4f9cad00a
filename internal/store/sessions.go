package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/devscan/internal/models"
)

// Session is a persisted scan session.
type Session struct {
	models.ScanProgress
	OutputPath string
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// SaveProgress implements scan.SessionSink. The first report creates the
// session row; later reports update it.
func (s *Store) SaveProgress(ctx context.Context, p models.ScanProgress) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO scan_sessions
    (id, mode, state, files_scanned, total_files, current_path, queue_reason, disk_key, error, started_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    state = excluded.state,
    files_scanned = excluded.files_scanned,
    total_files = excluded.total_files,
    current_path = excluded.current_path,
    queue_reason = excluded.queue_reason,
    disk_key = excluded.disk_key,
    error = excluded.error,
    updated_at = excluded.updated_at`,
		p.ScanID, p.Mode.String(), p.State.String(), p.FilesScanned, nullInt64(p.TotalFiles),
		nullString(p.CurrentPath), nullString(p.QueueReason), nullString(p.DiskKey), nullString(p.Error),
		now, now)
	if err != nil {
		return fmt.Errorf("save progress for scan %s: %w", p.ScanID, err)
	}
	return nil
}

// AttachOutput implements scan.SessionSink.
func (s *Store) AttachOutput(ctx context.Context, scanID, path string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_sessions SET output_path = ?, updated_at = ? WHERE id = ?`,
		path, s.now().UTC(), scanID)
	if err != nil {
		return fmt.Errorf("attach output to scan %s: %w", scanID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
	}
	return nil
}

const sessionColumns = `id, mode, state, files_scanned, total_files, current_path, queue_reason, disk_key, error, output_path, started_at, updated_at`

// GetSession loads one session.
func (s *Store) GetSession(ctx context.Context, scanID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM scan_sessions WHERE id = ?`, scanID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
	}
	return sess, err
}

// ListSessions returns the most recent sessions first, at most limit when
// limit is positive.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM scan_sessions ORDER BY started_at DESC, id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var mode, state string
	var total sql.NullInt64
	var current, reason, diskKey, errText, outputPath sql.NullString
	err := row.Scan(&sess.ScanID, &mode, &state, &sess.FilesScanned, &total,
		&current, &reason, &diskKey, &errText, &outputPath, &sess.StartedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	// unknown names fall back to the zero values
	sess.Mode, _ = models.ParseScanMode(mode)
	sess.State, _ = models.ParseScanState(state)
	if total.Valid {
		n := total.Int64
		sess.TotalFiles = &n
	}
	sess.CurrentPath = current.String
	sess.QueueReason = reason.String
	sess.DiskKey = diskKey.String
	sess.Error = errText.String
	sess.OutputPath = outputPath.String
	return &sess, nil
}
