package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	company_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	PRIMARY KEY (company_id, kind, name)
);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities (company_id, kind);
`

// SQLite is a Lookup backed by a SQLite read model of the catalog.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the catalog database at dsn.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Add inserts names, ignoring ones already present.
func (s *SQLite) Add(ctx context.Context, companyID string, kind EntityKind, names ...string) error {
	if !kind.Valid() {
		return ErrUnknownKind
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO entities (company_id, kind, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range names {
		if n = strings.TrimSpace(n); n == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, companyID, string(kind), n); err != nil {
			return fmt.Errorf("failed to insert %q: %w", n, err)
		}
	}
	return tx.Commit()
}

// FindCandidatesByFuzzyName runs a case-insensitive LIKE on the name.
func (s *SQLite) FindCandidatesByFuzzyName(ctx context.Context, companyID string, kind EntityKind, query string, limit int) ([]string, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	if limit <= 0 {
		limit = 60
	}
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM entities
		WHERE company_id = ? AND kind = ? AND name LIKE ? ESCAPE '\'
		ORDER BY length(name), name
		LIMIT ?`, companyID, string(kind), pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
