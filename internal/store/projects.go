package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/devscan/internal/models"
)

// GetProject loads an accepted project with its assigned tag names.
func (s *Store) GetProject(ctx context.Context, id int64) (models.ProjectRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, path, reason, markers, tech_hints, extension_summary FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectRecord{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.ProjectRecord{}, err
	}

	tags, err := s.assignedTags(ctx, id)
	if err != nil {
		return models.ProjectRecord{}, err
	}
	p.AssignedTags = tags
	return p, nil
}

// ListProjects returns every accepted project ordered by path, with tags.
func (s *Store) ListProjects(ctx context.Context) ([]models.ProjectRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, reason, markers, tech_hints, extension_summary FROM projects ORDER BY path COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}

	projects := make([]models.ProjectRecord, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		projects = append(projects, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	// tags are loaded after the cursor closes; the connection may be shared
	for i := range projects {
		tags, err := s.assignedTags(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].AssignedTags = tags
	}
	return projects, nil
}

func (s *Store) assignedTags(ctx context.Context, projectID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT t.name FROM project_tags pt JOIN tags t ON t.id = pt.tag_id
WHERE pt.project_id = ? ORDER BY t.name COLLATE NOCASE`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query project tags: %w", err)
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan project tag: %w", err)
		}
		tags = append(tags, strings.ToLower(name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project tags: %w", err)
	}
	return tags, nil
}

func scanProject(row rowScanner) (models.ProjectRecord, error) {
	var p models.ProjectRecord
	var reason, markers, hints, summary sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Path, &reason, &markers, &hints, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan project: %w", err)
	}
	p.Reason = reason.String
	p.Markers = models.ParseStringList(markers.String)
	p.TechHints = models.ParseStringList(hints.String)
	p.ExtensionSummary = summary.String
	return p, nil
}
