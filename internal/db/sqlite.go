package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	// If an existing file isn't SQLite, delete it; the catalog is rebuildable.
	if info, err := os.Stat(dbPath); err == nil && info.Size() >= 4 {
		f, err := os.Open(dbPath)
		if err == nil {
			header := make([]byte, 4)
			n, _ := f.Read(header)
			f.Close()
			if n >= 4 && string(header) != "SQLi" {
				log.Printf("Removing non-SQLite database file at %s", dbPath)
				os.Remove(dbPath)
			}
		}
	}

	dsn := "file:" + dbPath + "?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &DB{conn: conn}
	if err := d.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return d, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS crates (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			fetched_at TIMESTAMP,
			processed_at TIMESTAMP,
			last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(name, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crates_name ON crates (name)`,

		`CREATE TABLE IF NOT EXISTS sidebars (
			id INTEGER PRIMARY KEY,
			crate_id INTEGER NOT NULL REFERENCES crates(id) ON DELETE CASCADE,
			module_path TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			categories INTEGER NOT NULL,
			entries INTEGER NOT NULL,
			UNIQUE(crate_id, module_path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sidebars_crate ON sidebars (crate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sidebars_hash ON sidebars (content_hash)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// --- Crate operations ---

type Crate struct {
	ID          int
	Name        string
	Version     string
	FetchedAt   *time.Time
	ProcessedAt *time.Time
	LastUsedAt  time.Time
}

const crateColumns = `id, name, version, fetched_at, processed_at, last_used_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCrate(s scanner) (*Crate, error) {
	var c Crate
	if err := s.Scan(&c.ID, &c.Name, &c.Version, &c.FetchedAt, &c.ProcessedAt, &c.LastUsedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) UpsertCrate(name, version string) (*Crate, error) {
	c, err := db.GetCrate(name, version)
	if err != nil {
		return nil, fmt.Errorf("checking crate: %w", err)
	}
	if c != nil {
		return c, nil
	}

	result, err := db.conn.Exec(
		`INSERT INTO crates (name, version) VALUES (?, ?)`,
		name, version,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting crate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting crate id: %w", err)
	}

	return &Crate{ID: int(id), Name: name, Version: version, LastUsedAt: time.Now()}, nil
}

func (db *DB) MarkCrateFetched(crateID int) error {
	_, err := db.conn.Exec(`UPDATE crates SET fetched_at = CURRENT_TIMESTAMP WHERE id = ?`, crateID)
	return err
}

func (db *DB) MarkCrateProcessed(crateID int) error {
	_, err := db.conn.Exec(`UPDATE crates SET processed_at = CURRENT_TIMESTAMP WHERE id = ?`, crateID)
	return err
}

func (db *DB) TouchCrate(crateID int) error {
	_, err := db.conn.Exec(`UPDATE crates SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, crateID)
	return err
}

// GetCrate returns the crate, or nil when it is not in the catalog.
func (db *DB) GetCrate(name, version string) (*Crate, error) {
	c, err := scanCrate(db.conn.QueryRow(
		`SELECT `+crateColumns+` FROM crates WHERE name = ? AND version = ?`,
		name, version,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetLatestCrate returns the most recently processed crate with the given name.
func (db *DB) GetLatestCrate(name string) (*Crate, error) {
	c, err := scanCrate(db.conn.QueryRow(
		`SELECT `+crateColumns+`
		 FROM crates WHERE name = ? AND processed_at IS NOT NULL
		 ORDER BY processed_at DESC, id DESC LIMIT 1`, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (db *DB) ListCrates() ([]Crate, error) {
	rows, err := db.conn.Query(`SELECT ` + crateColumns + ` FROM crates ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crates []Crate
	for rows.Next() {
		c, err := scanCrate(rows)
		if err != nil {
			return nil, err
		}
		crates = append(crates, *c)
	}
	return crates, rows.Err()
}

// --- Sidebar operations ---

// Sidebar records where the emitted index for one module is stored.
type Sidebar struct {
	CrateID     int
	ModulePath  string
	ContentHash string
	Categories  int
	Entries     int
}

// PutSidebar inserts or replaces the sidebar for (CrateID, ModulePath).
func (db *DB) PutSidebar(s *Sidebar) error {
	_, err := db.conn.Exec(
		`INSERT INTO sidebars (crate_id, module_path, content_hash, categories, entries)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (crate_id, module_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			categories = excluded.categories,
			entries = excluded.entries`,
		s.CrateID, s.ModulePath, s.ContentHash, s.Categories, s.Entries,
	)
	if err != nil {
		return fmt.Errorf("storing sidebar for %s: %w", s.ModulePath, err)
	}
	return nil
}

// GetSidebar returns the stored sidebar, or nil when none was emitted.
func (db *DB) GetSidebar(crateID int, modulePath string) (*Sidebar, error) {
	var s Sidebar
	err := db.conn.QueryRow(
		`SELECT crate_id, module_path, content_hash, categories, entries
		 FROM sidebars WHERE crate_id = ? AND module_path = ?`,
		crateID, modulePath,
	).Scan(&s.CrateID, &s.ModulePath, &s.ContentHash, &s.Categories, &s.Entries)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSidebars returns every stored sidebar of a crate ordered by module path.
func (db *DB) ListSidebars(crateID int) ([]Sidebar, error) {
	rows, err := db.conn.Query(
		`SELECT crate_id, module_path, content_hash, categories, entries
		 FROM sidebars WHERE crate_id = ? ORDER BY module_path`, crateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sidebar
	for rows.Next() {
		var s Sidebar
		if err := rows.Scan(&s.CrateID, &s.ModulePath, &s.ContentHash, &s.Categories, &s.Entries); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) DeleteSidebarsByCrate(crateID int) error {
	_, err := db.conn.Exec(`DELETE FROM sidebars WHERE crate_id = ?`, crateID)
	return err
}

// Stats summarizes the catalog for status output.
type Stats struct {
	Crates   int
	Sidebars int
	Entries  int
}

func (db *DB) Stats() (Stats, error) {
	var s Stats
	err := db.conn.QueryRow(
		`SELECT (SELECT COUNT(*) FROM crates),
		        (SELECT COUNT(*) FROM sidebars),
		        (SELECT COALESCE(SUM(entries), 0) FROM sidebars)`,
	).Scan(&s.Crates, &s.Sidebars, &s.Entries)
	return s, err
}
