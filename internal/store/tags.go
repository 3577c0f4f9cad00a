package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/devscan/internal/models"
)

// StoredTagSuggestion is a tag suggestion with its persisted identity.
type StoredTagSuggestion struct {
	models.TagSuggestion
	ID        int64
	ProjectID int64
	Status    models.DecisionStatus
	DecidedAt *time.Time
}

// AddTag adds a catalog tag, returning the existing one when the name is
// already present in any casing.
func (s *Store) AddTag(ctx context.Context, name string) (models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Tag{}, fmt.Errorf("tag name is required")
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return models.Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	var t models.Tag
	if err := s.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name); err != nil {
		return models.Tag{}, fmt.Errorf("query tag: %w", err)
	}
	return t, nil
}

// ListTags returns the catalog ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]models.Tag, 0)
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// AssignTag attaches a catalog tag to a project. Assigning twice is a no-op.
func (s *Store) AssignTag(ctx context.Context, projectID, tagID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_tags (project_id, tag_id) VALUES (?, ?)`, projectID, tagID)
	if err != nil {
		return fmt.Errorf("assign tag %d to project %d: %w", tagID, projectID, err)
	}
	return nil
}

// SaveTagSuggestions stores suggestions for a project, skipping any whose
// (tag, fingerprint) pair is already recorded.
func (s *Store) SaveTagSuggestions(ctx context.Context, projectID int64, suggestions []models.TagSuggestion) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tag_suggestions
    (project_id, tag_id, tag_name, type, source, confidence, reason, fingerprint, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_id, tag_name, fingerprint) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare tag suggestion insert: %w", err)
		}
		defer stmt.Close()

		for _, sg := range suggestions {
			created := sg.CreatedAt
			if created.IsZero() {
				created = s.now()
			}
			_, err := stmt.ExecContext(ctx, projectID, nullInt64(sg.TagID), sg.TagName, string(sg.Type),
				string(sg.Source), sg.Confidence, sg.Reason, sg.Fingerprint, created.UTC())
			if err != nil {
				return fmt.Errorf("insert tag suggestion %s: %w", sg.TagName, err)
			}
		}
		return nil
	})
}

// IsTagRejected implements tag.History.
func (s *Store) IsTagRejected(ctx context.Context, projectID int64, tagName, fingerprint string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM tag_suggestions
WHERE project_id = ? AND tag_name = ? AND fingerprint = ? AND status = ?`,
		projectID, tagName, fingerprint, string(models.StatusRejected)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query rejected tag suggestion: %w", err)
	}
	return count > 0, nil
}

const tagSuggestionColumns = `id, project_id, tag_id, tag_name, type, source, confidence, reason, fingerprint, status, created_at, decided_at`

// ListTagSuggestions returns suggestions ordered by confidence then name.
// projectID 0 and an empty status match everything.
func (s *Store) ListTagSuggestions(ctx context.Context, projectID int64, status models.DecisionStatus) ([]*StoredTagSuggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+tagSuggestionColumns+` FROM tag_suggestions
WHERE (? = 0 OR project_id = ?) AND (? = '' OR status = ?)
ORDER BY confidence DESC, tag_name COLLATE NOCASE`,
		projectID, projectID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("query tag suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]*StoredTagSuggestion, 0)
	for rows.Next() {
		sg, err := scanTagSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag suggestions: %w", err)
	}
	return out, nil
}

// DecideTagSuggestion records the operator's verdict. Accepting assigns the
// tag to the project, creating the catalog entry when the suggestion has
// no tag id.
func (s *Store) DecideTagSuggestion(ctx context.Context, id int64, status models.DecisionStatus) error {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagSuggestionColumns+` FROM tag_suggestions WHERE id = ?`, id)
	sg, err := scanTagSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("tag suggestion %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var decided interface{}
		if status != models.StatusPending {
			decided = s.now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tag_suggestions SET status = ?, decided_at = ? WHERE id = ?`,
			string(status), decided, id); err != nil {
			return fmt.Errorf("update tag suggestion %d: %w", id, err)
		}
		if status != models.StatusAccepted {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, sg.TagName); err != nil {
			return fmt.Errorf("ensure tag %s: %w", sg.TagName, err)
		}
		var tagID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, sg.TagName).Scan(&tagID); err != nil {
			return fmt.Errorf("query tag %s: %w", sg.TagName, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_tags (project_id, tag_id) VALUES (?, ?)`, sg.ProjectID, tagID); err != nil {
			return fmt.Errorf("assign tag %s: %w", sg.TagName, err)
		}
		return nil
	})
}

func scanTagSuggestion(row rowScanner) (*StoredTagSuggestion, error) {
	var sg StoredTagSuggestion
	var tagID sql.NullInt64
	var typ, source, status string
	var reason sql.NullString
	var decided sql.NullTime
	err := row.Scan(&sg.ID, &sg.ProjectID, &tagID, &sg.TagName, &typ, &source, &sg.Confidence,
		&reason, &sg.Fingerprint, &status, &sg.CreatedAt, &decided)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan tag suggestion: %w", err)
	}

	if tagID.Valid {
		id := tagID.Int64
		sg.TagID = &id
	}
	sg.Type = models.TagSuggestionType(typ)
	sg.Source = models.TagSource(source)
	sg.Reason = reason.String
	sg.Status, err = models.ParseDecisionStatus(status)
	if err != nil {
		sg.Status = models.StatusPending
	}
	if decided.Valid {
		t := decided.Time
		sg.DecidedAt = &t
	}
	return &sg, nil
}
