package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/devscan/internal/models"
)

// StoredProjectSuggestion is a project suggestion with its persisted
// identity and decision.
type StoredProjectSuggestion struct {
	models.ProjectSuggestion
	ID        int64
	ScanID    string
	Status    models.DecisionStatus
	DecidedAt *time.Time
}

// SaveProjectSuggestions implements scan.SuggestionSink. A suggestion whose
// path and fingerprint are already stored is skipped, so re-scans do not
// duplicate pending or decided candidates.
func (s *Store) SaveProjectSuggestions(ctx context.Context, scanID string, suggestions []models.ProjectSuggestion) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO project_suggestions
    (scan_id, name, path, kind, score, reason, extension_summary, markers, tech_hints, fingerprint, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, fingerprint) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare suggestion insert: %w", err)
		}
		defer stmt.Close()

		for _, sg := range suggestions {
			created := sg.CreatedAt
			if created.IsZero() {
				created = s.now()
			}
			_, err := stmt.ExecContext(ctx, scanID, sg.Name, sg.Path, string(sg.Kind), sg.Score, sg.Reason,
				sg.ExtensionSummary, models.EncodeStringList(sg.Markers), models.EncodeStringList(sg.TechHints),
				sg.Fingerprint, created.UTC())
			if err != nil {
				return fmt.Errorf("insert suggestion %s: %w", sg.Path, err)
			}
		}
		return nil
	})
}

// IsProjectRejected implements scan.History. Paths compare
// case-insensitively.
func (s *Store) IsProjectRejected(ctx context.Context, path string, kind models.SuggestionKind, fingerprint string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM project_suggestions
WHERE path = ? AND kind = ? AND fingerprint = ? AND status = ?`,
		path, string(kind), fingerprint, string(models.StatusRejected)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query rejected suggestion: %w", err)
	}
	return count > 0, nil
}

const projectSuggestionColumns = `id, scan_id, name, path, kind, score, reason, extension_summary, markers, tech_hints, fingerprint, status, created_at, decided_at`

// ListProjectSuggestions returns suggestions ordered by score then path.
// Empty scanID or status match everything.
func (s *Store) ListProjectSuggestions(ctx context.Context, scanID string, status models.DecisionStatus) ([]*StoredProjectSuggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+projectSuggestionColumns+` FROM project_suggestions
WHERE (? = '' OR scan_id = ?) AND (? = '' OR status = ?)
ORDER BY score DESC, path COLLATE NOCASE`,
		scanID, scanID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("query project suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]*StoredProjectSuggestion, 0)
	for rows.Next() {
		sg, err := scanProjectSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project suggestions: %w", err)
	}
	return out, nil
}

// GetProjectSuggestion loads one suggestion.
func (s *Store) GetProjectSuggestion(ctx context.Context, id int64) (*StoredProjectSuggestion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectSuggestionColumns+` FROM project_suggestions WHERE id = ?`, id)
	sg, err := scanProjectSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project suggestion %d: %w", id, ErrNotFound)
	}
	return sg, err
}

// DecideProjectSuggestion records the operator's verdict. Accepting creates
// (or refreshes) the project record for the suggestion's path and returns
// its id; other verdicts return 0.
func (s *Store) DecideProjectSuggestion(ctx context.Context, id int64, status models.DecisionStatus) (int64, error) {
	sg, err := s.GetProjectSuggestion(ctx, id)
	if err != nil {
		return 0, err
	}

	var projectID int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var decided interface{}
		if status != models.StatusPending {
			decided = s.now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE project_suggestions SET status = ?, decided_at = ? WHERE id = ?`,
			string(status), decided, id); err != nil {
			return fmt.Errorf("update suggestion %d: %w", id, err)
		}
		if status != models.StatusAccepted {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO projects (name, path, reason, markers, tech_hints, extension_summary, suggestion_id)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    name = excluded.name,
    reason = excluded.reason,
    markers = excluded.markers,
    tech_hints = excluded.tech_hints,
    extension_summary = excluded.extension_summary,
    suggestion_id = excluded.suggestion_id`,
			sg.Name, sg.Path, sg.Reason, models.EncodeStringList(sg.Markers),
			models.EncodeStringList(sg.TechHints), sg.ExtensionSummary, id); err != nil {
			return fmt.Errorf("upsert project %s: %w", sg.Path, err)
		}
		return tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE path = ?`, sg.Path).Scan(&projectID)
	})
	if err != nil {
		return 0, err
	}
	return projectID, nil
}

func scanProjectSuggestion(row rowScanner) (*StoredProjectSuggestion, error) {
	var sg StoredProjectSuggestion
	var kind, status string
	var reason, summary, markers, hints sql.NullString
	var decided sql.NullTime
	err := row.Scan(&sg.ID, &sg.ScanID, &sg.Name, &sg.Path, &kind, &sg.Score, &reason, &summary,
		&markers, &hints, &sg.Fingerprint, &status, &sg.CreatedAt, &decided)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan project suggestion: %w", err)
	}

	sg.Kind, _ = models.ParseSuggestionKind(kind)
	sg.Status, err = models.ParseDecisionStatus(status)
	if err != nil {
		sg.Status = models.StatusPending
	}
	sg.Reason = reason.String
	sg.ExtensionSummary = summary.String
	sg.Markers = models.ParseStringList(markers.String)
	sg.TechHints = models.ParseStringList(hints.String)
	if decided.Valid {
		t := decided.Time
		sg.DecidedAt = &t
	}
	return &sg, nil
}
