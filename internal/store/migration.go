package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations is the ordered list of all schema changes.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema with roots, sessions, suggestions, projects and tags",
		SQL: `
CREATE TABLE IF NOT EXISTS roots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE COLLATE NOCASE,
    disk_key TEXT NOT NULL,
    dirty BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_scanned_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scan_sessions (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    state TEXT NOT NULL,
    files_scanned INTEGER NOT NULL DEFAULT 0,
    total_files INTEGER,
    current_path TEXT,
    queue_reason TEXT,
    error TEXT,
    output_path TEXT,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_scan_sessions_started ON scan_sessions(started_at DESC);

CREATE TABLE IF NOT EXISTS project_suggestions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id TEXT NOT NULL,
    name TEXT NOT NULL,
    path TEXT NOT NULL COLLATE NOCASE,
    kind TEXT NOT NULL,
    score REAL NOT NULL,
    reason TEXT,
    extension_summary TEXT,
    markers TEXT,
    tech_hints TEXT,
    fingerprint TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'Pending',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    decided_at TIMESTAMP,
    UNIQUE(path, fingerprint)
);

CREATE INDEX IF NOT EXISTS idx_project_suggestions_scan ON project_suggestions(scan_id);
CREATE INDEX IF NOT EXISTS idx_project_suggestions_status ON project_suggestions(status);

CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    path TEXT NOT NULL UNIQUE COLLATE NOCASE,
    reason TEXT,
    markers TEXT,
    tech_hints TEXT,
    extension_summary TEXT,
    suggestion_id INTEGER,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS project_tags (
    project_id INTEGER NOT NULL,
    tag_id INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (project_id, tag_id),
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
    FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tag_suggestions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    tag_id INTEGER,
    tag_name TEXT NOT NULL COLLATE NOCASE,
    type TEXT NOT NULL,
    source TEXT NOT NULL,
    confidence REAL NOT NULL,
    reason TEXT,
    fingerprint TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'Pending',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    decided_at TIMESTAMP,
    UNIQUE(project_id, tag_name, fingerprint),
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tag_suggestions_project ON tag_suggestions(project_id);
`,
	},
	{
		Version:     2,
		Description: "Add disk_key to scan_sessions",
		// column added idempotently in applyMigration2Tx
		SQL: `CREATE INDEX IF NOT EXISTS idx_scan_sessions_disk ON scan_sessions(disk_key);`,
	},
}

// MigrationVersion records an applied migration.
type MigrationVersion struct {
	Version   int
	AppliedAt time.Time
}

// ApplyMigrations applies every pending migration in one transaction.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin exclusive transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	if err := ensureSchemaVersionTableTx(tx); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	appliedVersions, err := appliedVersionsTx(tx)
	if err != nil {
		return fmt.Errorf("get applied versions: %w", err)
	}
	applied := make(map[int]bool, len(appliedVersions))
	for _, v := range appliedVersions {
		applied[v.Version] = true
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		if migration.Version == 2 {
			if err := addColumnIfNotExistsTx(ctx, tx, "scan_sessions", "disk_key", "TEXT"); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Description, err)
			}
		}

		if migration.SQL != "" {
			if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Description, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, migration.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", migration.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// GetAppliedVersions lists applied migrations in version order.
func (s *Store) GetAppliedVersions() ([]*MigrationVersion, error) {
	rows, err := s.db.Query(`SELECT version, applied_at FROM schema_version ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()
	return scanVersions(rows)
}

// GetLatestVersion returns the highest applied migration version.
func (s *Store) GetLatestVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("query latest version: %w", err)
	}
	return version, nil
}

func ensureSchemaVersionTableTx(tx *sql.Tx) error {
	_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}
	return nil
}

func appliedVersionsTx(tx *sql.Tx) ([]*MigrationVersion, error) {
	rows, err := tx.Query(`SELECT version, applied_at FROM schema_version ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()
	return scanVersions(rows)
}

func scanVersions(rows *sql.Rows) ([]*MigrationVersion, error) {
	var versions []*MigrationVersion
	for rows.Next() {
		v := &MigrationVersion{}
		if err := rows.Scan(&v.Version, &v.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

// addColumnIfNotExistsTx adds a column unless table already has it.
// SQLite has no ADD COLUMN IF NOT EXISTS.
func addColumnIfNotExistsTx(ctx context.Context, tx *sql.Tx, table, column, definition string) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("query table info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate table info: %w", err)
	}
	rows.Close()

	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := tx.ExecContext(ctx, alter); err != nil {
		if strings.Contains(err.Error(), "duplicate column name") {
			return nil
		}
		return fmt.Errorf("alter table: %w", err)
	}
	return nil
}
