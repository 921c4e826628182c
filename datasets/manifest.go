package datasets

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Manifest is the SQLite bookkeeping database under the cache root. It is
// never consulted to build a bundle; it records what was fetched so the
// cache can be listed, verified and pruned.
type Manifest struct {
	db *sql.DB
}

// Record describes one cached dataset.
type Record struct {
	Source        string
	Name          string
	URL           string
	FetchedAt     time.Time
	ArchiveBytes  int64
	ArchiveDigest string
	Format        string // "edgelist" or "graphml"
	Directed      bool
	Bipartite     bool
	Title         string
	Description   string
}

// FileRecord describes one extracted file of a cached dataset.
type FileRecord struct {
	Path   string // relative to the dataset directory, slash form
	Bytes  int64
	Digest string // hex BLAKE2b-256
}

// OpenManifest opens or creates the manifest database at the given path.
func OpenManifest(path string) (*Manifest, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createManifestSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating manifest schema: %w", err)
	}
	return &Manifest{db: db}, nil
}

// Close closes the database connection.
func (m *Manifest) Close() error {
	return m.db.Close()
}

func createManifestSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS datasets (
			source TEXT NOT NULL,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			archive_bytes INTEGER NOT NULL,
			archive_digest TEXT NOT NULL,
			format TEXT NOT NULL,
			directed INTEGER NOT NULL,
			bipartite INTEGER NOT NULL,
			title TEXT,
			description TEXT,
			PRIMARY KEY (source, name)
		);

		CREATE TABLE IF NOT EXISTS files (
			source TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (source, name, path)
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Put replaces the manifest entry for one dataset, dataset row and file
// rows together in a single transaction.
func (m *Manifest) Put(rec Record, files []FileRecord) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM datasets WHERE source = ? AND name = ?`, rec.Source, rec.Name); err != nil {
		return fmt.Errorf("clearing dataset row: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE source = ? AND name = ?`, rec.Source, rec.Name); err != nil {
		return fmt.Errorf("clearing file rows: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO datasets (
			source, name, url, fetched_at,
			archive_bytes, archive_digest,
			format, directed, bipartite, title, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Source, rec.Name, rec.URL, rec.FetchedAt.Unix(),
		rec.ArchiveBytes, rec.ArchiveDigest,
		rec.Format, rec.Directed, rec.Bipartite,
		nullableText(rec.Title), nullableText(rec.Description))
	if err != nil {
		return fmt.Errorf("inserting dataset row: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO files (source, name, path, bytes, digest)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing file insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(rec.Source, rec.Name, f.Path, f.Bytes, f.Digest); err != nil {
			return fmt.Errorf("inserting file row %s: %w", f.Path, err)
		}
	}

	return tx.Commit()
}

// Get retrieves the manifest entry for a dataset, or nil if none exists.
func (m *Manifest) Get(source, name string) (*Record, error) {
	row := m.db.QueryRow(`
		SELECT source, name, url, fetched_at,
			archive_bytes, archive_digest,
			format, directed, bipartite, title, description
		FROM datasets
		WHERE source = ? AND name = ?
	`, source, name)
	return scanRecord(row)
}

// Files retrieves the extracted file rows of a dataset, ordered by path.
func (m *Manifest) Files(source, name string) ([]FileRecord, error) {
	rows, err := m.db.Query(`
		SELECT path, bytes, digest
		FROM files
		WHERE source = ? AND name = ?
		ORDER BY path
	`, source, name)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.Bytes, &f.Digest); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Remove deletes the manifest entry for a dataset.
func (m *Manifest) Remove(source, name string) error {
	if _, err := m.db.Exec(`DELETE FROM files WHERE source = ? AND name = ?`, source, name); err != nil {
		return fmt.Errorf("removing file rows: %w", err)
	}
	if _, err := m.db.Exec(`DELETE FROM datasets WHERE source = ? AND name = ?`, source, name); err != nil {
		return fmt.Errorf("removing dataset row: %w", err)
	}
	return nil
}

// List returns all manifest entries ordered by source then name.
func (m *Manifest) List() ([]Record, error) {
	rows, err := m.db.Query(`
		SELECT source, name, url, fetched_at,
			archive_bytes, archive_digest,
			format, directed, bipartite, title, description
		FROM datasets
		ORDER BY source, name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			recs = append(recs, *rec)
		}
	}
	return recs, rows.Err()
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var fetchedAt int64
	var directed, bipartite int
	var title, description sql.NullString

	err := s.Scan(
		&rec.Source, &rec.Name, &rec.URL, &fetchedAt,
		&rec.ArchiveBytes, &rec.ArchiveDigest,
		&rec.Format, &directed, &bipartite, &title, &description,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rec.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	rec.Directed = directed != 0
	rec.Bipartite = bipartite != 0
	rec.Title = title.String
	rec.Description = description.String
	return &rec, nil
}

// nullableText converts a string to sql.NullString, treating empty as NULL.
func nullableText(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
