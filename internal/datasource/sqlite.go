package datasource

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/foldtree/pkg/debug"
	"github.com/vanderheijden86/foldtree/pkg/metrics"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

// Schema is the table layout read by SQLiteReader and written by WriteNodes.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id        TEXT PRIMARY KEY,
	parent_id TEXT NOT NULL DEFAULT '',
	rank      INTEGER NOT NULL DEFAULT 0,
	title     TEXT NOT NULL DEFAULT '',
	kind      TEXT NOT NULL DEFAULT '',
	notes     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id, rank);
`

// SQLiteReader provides read access to a hierarchy database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadNodes reads every node. Databases that only carry the structural
// columns (id, parent_id, rank) are accepted too.
func (r *SQLiteReader) LoadNodes() ([]model.Node, error) {
	defer metrics.Timer(metrics.DataLoad)()

	rows, err := r.db.Query(`
		SELECT id, parent_id, rank, title, kind, notes
		FROM nodes
		ORDER BY parent_id, rank, rowid
	`)
	if err != nil {
		debug.Log("datasource: full query failed on %s, trying structural columns: %v", r.path, err)
		return r.loadNodesSimple()
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		var n model.Node
		var parent, title, kind, notes sql.NullString
		var rank sql.NullInt64
		if err := rows.Scan(&n.Key, &parent, &rank, &title, &kind, &notes); err != nil {
			debug.Log("datasource: skipping row: %v", err)
			continue
		}
		n.Parent = parent.String
		n.Order = int(rank.Int64)
		n.Title = title.String
		n.Kind = model.Kind(strings.ToLower(strings.TrimSpace(kind.String)))
		n.Notes = notes.String
		if err := n.Validate(); err != nil {
			debug.Log("datasource: skipping invalid node %q: %v", n.Key, err)
			continue
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading nodes: %w", err)
	}
	return nodes, nil
}

func (r *SQLiteReader) loadNodesSimple() ([]model.Node, error) {
	rows, err := r.db.Query(`SELECT id, parent_id, rank FROM nodes ORDER BY parent_id, rank, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		var n model.Node
		var parent sql.NullString
		var rank sql.NullInt64
		if err := rows.Scan(&n.Key, &parent, &rank); err != nil {
			continue
		}
		n.Parent, n.Order = parent.String, int(rank.Int64)
		if n.Validate() != nil {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// CountNodes returns the number of rows in the nodes table.
func (r *SQLiteReader) CountNodes() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return count, nil
}

// WriteNodes creates or updates a hierarchy database at path. Existing rows
// with the same id are replaced.
func WriteNodes(path string, nodes []model.Node) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO nodes (id, parent_id, rank, title, kind, notes) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		if _, err := stmt.Exec(n.Key, n.Parent, n.Order, n.Title, string(n.Kind), n.Notes); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.Key, err)
		}
	}
	return tx.Commit()
}
