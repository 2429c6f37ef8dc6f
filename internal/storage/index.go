package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/citemap/internal/reference"
	_ "modernc.org/sqlite"
)

// Index is a disposable SQLite mirror of the JSON stores used for
// lookups and full-text search. The JSON stores stay the source of truth.
type Index struct {
	db *sql.DB
}

// selectRecordFields is the column list read back into a Hit.
const selectRecordFields = `key, title, year, venue, venue_short, url, doi, type, authors_json`

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			year INTEGER,
			venue TEXT,
			venue_short TEXT,
			url TEXT,
			doi TEXT,
			type TEXT NOT NULL,
			authors_json TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS authors (
			key TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			affiliation TEXT
		);

		-- One row per (document, local number)
		CREATE TABLE IF NOT EXISTS citations (
			slug TEXT NOT NULL,
			number INTEGER NOT NULL,
			key TEXT NOT NULL,
			PRIMARY KEY (slug, number)
		);

		CREATE INDEX IF NOT EXISTS idx_citations_key ON citations(key);
		CREATE INDEX IF NOT EXISTS idx_records_doi ON records(doi) WHERE doi IS NOT NULL AND doi != '';

		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			key,
			title,
			authors_text,
			venue
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Rebuild clears the index and reloads it from the stores. It returns
// the number of records indexed.
func (ix *Index) Rebuild(s *Stores) (int, error) {
	tx, err := ix.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"records", "authors", "citations", "records_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	recStmt, err := tx.Prepare(`
		INSERT INTO records (key, title, year, venue, venue_short, url, doi, type, authors_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing records insert: %w", err)
	}
	defer recStmt.Close()

	ftsStmt, err := tx.Prepare(`INSERT INTO records_fts (key, title, authors_text, venue) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	keys := sortedKeys(s.Records)
	for _, key := range keys {
		rec := s.Records[key]
		authorsJSON, err := json.Marshal(nonNil(rec.Authors))
		if err != nil {
			return 0, fmt.Errorf("marshaling authors for %s: %w", key, err)
		}
		_, err = recStmt.Exec(
			key, rec.Title, nullableInt(rec.Year),
			nullableStringValue(rec.Venue), nullableStringValue(rec.VenueShort),
			nullableStringValue(rec.URL), nullableStringValue(rec.DOI),
			string(rec.Type), string(authorsJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting record %s: %w", key, err)
		}
		if _, err := ftsStmt.Exec(key, rec.Title, authorsText(rec.Authors, s.Authors), rec.Venue); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", key, err)
		}
	}

	authStmt, err := tx.Prepare(`INSERT INTO authors (key, display_name, affiliation) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing authors insert: %w", err)
	}
	defer authStmt.Close()
	for _, key := range sortedKeys(s.Authors) {
		a := s.Authors[key]
		if _, err := authStmt.Exec(key, a.DisplayName, nullableStringValue(a.Affiliation())); err != nil {
			return 0, fmt.Errorf("inserting author %s: %w", key, err)
		}
	}

	citeStmt, err := tx.Prepare(`INSERT INTO citations (slug, number, key) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing citations insert: %w", err)
	}
	defer citeStmt.Close()
	for _, slug := range s.ChapterMap.Slugs() {
		frag := s.ChapterMap[slug]
		for _, n := range frag.Numbers() {
			if _, err := citeStmt.Exec(slug, n, frag[n]); err != nil {
				return 0, fmt.Errorf("inserting citation %s/ref-%d: %w", slug, n, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing index: %w", err)
	}
	return len(keys), nil
}

// authorsText joins display names for full-text search, falling back to
// the author key when the author is not stored.
func authorsText(keys []string, authors map[string]reference.Author) string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if a, ok := authors[k]; ok && a.DisplayName != "" {
			names = append(names, a.DisplayName)
		} else {
			names = append(names, k)
		}
	}
	return strings.Join(names, ", ")
}

// Hit is one record read back from the index.
type Hit struct {
	Key        string               `json:"key"`
	Title      string               `json:"title"`
	Year       int                  `json:"year,omitempty"`
	Venue      string               `json:"venue,omitempty"`
	VenueShort string               `json:"venueShort,omitempty"`
	URL        string               `json:"url,omitempty"`
	DOI        string               `json:"doi,omitempty"`
	Type       reference.RecordType `json:"type"`
	Authors    []string             `json:"authors"`
}

// Get returns the record with the given key, or nil when absent.
func (ix *Index) Get(key string) (*Hit, error) {
	row := ix.db.QueryRow(`SELECT `+selectRecordFields+` FROM records WHERE key = ?`, key)
	return scanHit(row)
}

// CitedBy returns the (document, number) pairs that resolve to key.
func (ix *Index) CitedBy(key string) ([]reference.Location, error) {
	rows, err := ix.db.Query(`SELECT slug, number FROM citations WHERE key = ? ORDER BY slug, number`, key)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	var locs []reference.Location
	for rows.Next() {
		var l reference.Location
		if err := rows.Scan(&l.Slug, &l.Number); err != nil {
			return nil, err
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// SearchFilters narrows a search. Zero values are ignored.
type SearchFilters struct {
	Query string               // Full-text query over key, title, authors and venue
	Year  int                  // Exact year
	Type  reference.RecordType // Exact record type
}

// Search returns records matching all filters, ordered by key.
func (ix *Index) Search(filters SearchFilters, limit int) ([]Hit, error) {
	var args []any
	query := `SELECT ` + selectRecordFields + ` FROM records WHERE 1=1`

	if q := prepareFTSQuery(filters.Query); q != "" {
		query += ` AND key IN (SELECT key FROM records_fts WHERE records_fts MATCH ?)`
		args = append(args, q)
	}
	if filters.Year > 0 {
		query += ` AND year = ?`
		args = append(args, filters.Year)
	}
	if filters.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filters.Type))
	}
	query += ` ORDER BY key`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := ix.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, *h)
	}
	return hits, rows.Err()
}

// Count returns the number of indexed records.
func (ix *Index) Count() (int, error) {
	var n int
	err := ix.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHit(s scanner) (*Hit, error) {
	var h Hit
	var year sql.NullInt64
	var venue, venueShort, url, doi sql.NullString
	var typ, authorsJSON string

	err := s.Scan(&h.Key, &h.Title, &year, &venue, &venueShort, &url, &doi, &typ, &authorsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	h.Year = int(year.Int64)
	h.Venue = venue.String
	h.VenueShort = venueShort.String
	h.URL = url.String
	h.DOI = doi.String
	h.Type = reference.RecordType(typ)
	if err := json.Unmarshal([]byte(authorsJSON), &h.Authors); err != nil {
		return nil, fmt.Errorf("parsing authors JSON for %s: %w", h.Key, err)
	}
	return &h, nil
}

// prepareFTSQuery quotes queries containing FTS5 operators.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,/") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}
	return query
}

func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
