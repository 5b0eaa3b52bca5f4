package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/bnet/pkg/bnet/network"
	"github.com/cognicore/bnet/pkg/bnet/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// busyTimeoutMillis is how long a connection waits on a lock held by
// another process before failing with SQLITE_BUSY
const busyTimeoutMillis = 5000

// OpenSQLite opens a SQLite database with WAL mode enabled.
// The pool holds a single connection, so writers from one process queue
// on it instead of contending for the database lock.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busyTimeoutMillis))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS networks (
	name TEXT PRIMARY KEY,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS network_variables (
	network TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY(network, position),
	UNIQUE(network, name),
	FOREIGN KEY(network) REFERENCES networks(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS network_parents (
	network TEXT NOT NULL,
	child TEXT NOT NULL,
	position INTEGER NOT NULL,
	parent TEXT NOT NULL,
	PRIMARY KEY(network, child, position),
	FOREIGN KEY(network) REFERENCES networks(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS cpt_entries (
	network TEXT NOT NULL,
	position INTEGER NOT NULL,
	child TEXT NOT NULL,
	value INTEGER NOT NULL,
	given TEXT NOT NULL,
	p REAL NOT NULL,
	PRIMARY KEY(network, position),
	FOREIGN KEY(network) REFERENCES networks(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	network TEXT NOT NULL,
	query TEXT NOT NULL,
	evidence TEXT NOT NULL,
	probability REAL NOT NULL,
	numerator REAL NOT NULL,
	denominator REAL NOT NULL,
	error TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS records_network_idx ON records(network, id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertNetwork inserts or replaces a network definition
func (s *sqliteStore) UpsertNetwork(ctx context.Context, name string, def network.Definition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO networks (name, updated_at)
VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET
	updated_at=excluded.updated_at;
`
	if _, err := tx.ExecContext(ctx, stmt, name, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}

	if err := replaceVariables(ctx, tx, name, def.Variables); err != nil {
		return err
	}
	if err := replaceParents(ctx, tx, name, def.Parents); err != nil {
		return err
	}
	if err := replaceEntries(ctx, tx, name, def.Entries); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceVariables(ctx context.Context, tx *sql.Tx, name string, vars []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM network_variables WHERE network = ?`, name); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO network_variables (network, position, name) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range vars {
		if _, err := stmt.ExecContext(ctx, name, i, v); err != nil {
			return err
		}
	}
	return nil
}

func replaceParents(ctx context.Context, tx *sql.Tx, name string, parents map[string][]string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM network_parents WHERE network = ?`, name); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO network_parents (network, child, position, parent) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for child, ps := range parents {
		for i, p := range ps {
			if _, err := stmt.ExecContext(ctx, name, child, i, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func replaceEntries(ctx context.Context, tx *sql.Tx, name string, entries []network.Entry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cpt_entries WHERE network = ?`, name); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cpt_entries (network, position, child, value, given, p) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		given := make([]string, len(e.Given))
		for j, lit := range e.Given {
			given[j] = lit.String()
		}
		givenJSON, err := json.Marshal(given)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, name, i, e.Child.Var, boolToInt(e.Child.Value), string(givenJSON), e.P); err != nil {
			return err
		}
	}
	return nil
}

// GetNetwork loads a network definition by name
func (s *sqliteStore) GetNetwork(ctx context.Context, name string) (network.Definition, bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM networks WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return network.Definition{}, false, err
	}
	if exists == 0 {
		return network.Definition{}, false, nil
	}

	def := network.Definition{Parents: make(map[string][]string)}

	def.Variables, err = s.loadStringColumn(ctx, `SELECT name FROM network_variables WHERE network = ? ORDER BY position`, name)
	if err != nil {
		return network.Definition{}, false, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT child, parent FROM network_parents WHERE network = ? ORDER BY child, position`, name)
	if err != nil {
		return network.Definition{}, false, err
	}
	for rows.Next() {
		var child, parent string
		if err := rows.Scan(&child, &parent); err != nil {
			rows.Close()
			return network.Definition{}, false, err
		}
		def.Parents[child] = append(def.Parents[child], parent)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return network.Definition{}, false, err
	}
	rows.Close()

	def.Entries, err = s.loadEntries(ctx, name)
	if err != nil {
		return network.Definition{}, false, err
	}

	return def, true, nil
}

func (s *sqliteStore) loadEntries(ctx context.Context, name string) ([]network.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT child, value, given, p FROM cpt_entries WHERE network = ? ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []network.Entry
	for rows.Next() {
		var (
			child     string
			value     int
			givenJSON string
			p         float64
		)
		if err := rows.Scan(&child, &value, &givenJSON, &p); err != nil {
			return nil, err
		}

		var tokens []string
		if err := json.Unmarshal([]byte(givenJSON), &tokens); err != nil {
			return nil, fmt.Errorf("decode given for %s: %w", child, err)
		}
		given, err := network.ParseLiterals(tokens)
		if err != nil {
			return nil, fmt.Errorf("decode given for %s: %w", child, err)
		}
		if len(given) == 0 {
			given = nil
		}

		entries = append(entries, network.Entry{
			Child: network.Literal{Var: child, Value: value != 0},
			Given: given,
			P:     p,
		})
	}
	return entries, rows.Err()
}

// ListNetworks returns stored network names, sorted
func (s *sqliteStore) ListNetworks(ctx context.Context) ([]string, error) {
	return s.loadStringColumn(ctx, `SELECT name FROM networks ORDER BY name`)
}

// AppendRecord stores a query record
func (s *sqliteStore) AppendRecord(ctx context.Context, r store.Record) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO records (id, network, query, evidence, probability, numerator, denominator, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;
`, r.ID, r.Network, r.Query, r.Evidence, r.Probability, r.Numerator, r.Denominator, r.Error,
		r.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// RecentRecords returns the newest records first; an empty networkName
// matches every network
func (s *sqliteStore) RecentRecords(ctx context.Context, networkName string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, network, query, evidence, probability, numerator, denominator, error, created_at
FROM records
WHERE ? = '' OR network = ?
ORDER BY id DESC
LIMIT ?;
`, networkName, networkName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var (
			r         store.Record
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.Network, &r.Query, &r.Evidence, &r.Probability,
			&r.Numerator, &r.Denominator, &r.Error, &createdAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = ts
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
