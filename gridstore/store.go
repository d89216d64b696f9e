// Package gridstore persists worked-grid records in SQLite so a parsed award
// log survives restarts. The table is tiny (one row per credited grid) and
// write-rare, so all operations run synchronously.
package gridstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"dxwatch/award"
)

var errStoreClosed = errors.New("gridstore: store is closed")

// Store wraps the SQLite handle for the worked-grid table.
type Store struct {
	db *sql.DB
}

// Open initializes the database file and schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("gridstore: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("gridstore: open db: %w", err)
	}
	if _, err := db.Exec(`pragma journal_mode=WAL; pragma synchronous=NORMAL; pragma busy_timeout=5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("gridstore: pragmas: %w", err)
	}
	if _, err := db.Exec(`create table if not exists worked_grids (
		grid text primary key,
		call text not null,
		date text not null
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("gridstore: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Replace swaps the stored set for the given records in one transaction,
// mirroring the tracker's wholesale-reload semantics.
func (s *Store) Replace(grids map[string]award.WorkedGrid) error {
	if s == nil || s.db == nil {
		return errStoreClosed
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("gridstore: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`delete from worked_grids`); err != nil {
		return fmt.Errorf("gridstore: clear: %w", err)
	}
	stmt, err := tx.Prepare(`insert into worked_grids (grid, call, date) values (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("gridstore: prepare: %w", err)
	}
	defer stmt.Close()
	for grid, rec := range grids {
		norm := award.NormalizeGrid(grid)
		if norm == "" {
			continue
		}
		if _, err := stmt.Exec(norm, rec.Call, rec.Date); err != nil {
			return fmt.Errorf("gridstore: insert %s: %w", norm, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gridstore: commit: %w", err)
	}
	return nil
}

// Load reads the stored worked-grid set.
func (s *Store) Load() (map[string]award.WorkedGrid, error) {
	if s == nil || s.db == nil {
		return nil, errStoreClosed
	}
	rows, err := s.db.Query(`select grid, call, date from worked_grids`)
	if err != nil {
		return nil, fmt.Errorf("gridstore: query: %w", err)
	}
	defer rows.Close()

	grids := make(map[string]award.WorkedGrid)
	for rows.Next() {
		var rec award.WorkedGrid
		if err := rows.Scan(&rec.Grid, &rec.Call, &rec.Date); err != nil {
			return nil, fmt.Errorf("gridstore: scan: %w", err)
		}
		grids[rec.Grid] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gridstore: rows: %w", err)
	}
	return grids, nil
}

// Count returns the number of stored grids.
func (s *Store) Count() (int, error) {
	if s == nil || s.db == nil {
		return 0, errStoreClosed
	}
	var n int
	if err := s.db.QueryRow(`select count(*) from worked_grids`).Scan(&n); err != nil {
		return 0, fmt.Errorf("gridstore: count: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
