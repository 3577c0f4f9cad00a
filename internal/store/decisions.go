package store

import (
	"context"
	"fmt"

	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/regression"
)

// ScanDecisions groups every accepted or rejected project suggestion by the
// scan that produced it, with that scan's snapshot location. Scans with no
// recorded output keep an empty snapshot path and are skipped by the
// analyzer.
func (s *Store) ScanDecisions(ctx context.Context) ([]regression.ScanDecisions, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ps.scan_id, COALESCE(ss.output_path, ''), ps.path, ps.kind, ps.status
FROM project_suggestions ps
LEFT JOIN scan_sessions ss ON ss.id = ps.scan_id
WHERE ps.status IN (?, ?)
ORDER BY ps.scan_id, ps.id`,
		string(models.StatusAccepted), string(models.StatusRejected))
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := make([]regression.ScanDecisions, 0)
	for rows.Next() {
		var scanID, output, path, kind, status string
		if err := rows.Scan(&scanID, &output, &path, &kind, &status); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ScanID != scanID {
			out = append(out, regression.ScanDecisions{ScanID: scanID, SnapshotPath: output})
		}
		group := &out[len(out)-1]
		group.Decisions = append(group.Decisions, regression.Decision{
			Path:   path,
			Kind:   models.SuggestionKind(kind),
			Status: models.DecisionStatus(status),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}
