// Package storage persists the chapter map, reference and author stores as
// JSON files and mirrors them into a SQLite query index.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/citemap/internal/reference"
)

// Store file names inside the data directory.
const (
	ChapterMapFile = "chapter-map.json"
	ReferencesFile = "references.json"
	AuthorsFile    = "authors.json"
)

// ErrStoreNotFound is returned when a store file does not exist.
var ErrStoreNotFound = errors.New("store not found")

// Stores is the full persisted state.
type Stores struct {
	ChapterMap reference.ChapterMap
	Records    map[string]reference.Record
	Authors    map[string]reference.Author
}

// Load reads all three stores from dir. A missing file yields an error
// wrapping ErrStoreNotFound.
func Load(dir string) (*Stores, error) {
	s := &Stores{}
	if err := ReadJSON(filepath.Join(dir, ChapterMapFile), &s.ChapterMap); err != nil {
		return nil, err
	}
	if err := ReadJSON(filepath.Join(dir, ReferencesFile), &s.Records); err != nil {
		return nil, err
	}
	if err := ReadJSON(filepath.Join(dir, AuthorsFile), &s.Authors); err != nil {
		return nil, err
	}
	s.ensureMaps()
	return s, nil
}

// LoadPrior reads whatever stores exist in dir; missing files are empty.
// It is what a build merges into.
func LoadPrior(dir string) (*Stores, error) {
	s := &Stores{}
	for _, f := range []struct {
		name string
		v    any
	}{
		{ChapterMapFile, &s.ChapterMap},
		{ReferencesFile, &s.Records},
		{AuthorsFile, &s.Authors},
	} {
		err := ReadJSON(filepath.Join(dir, f.name), f.v)
		if err != nil && !errors.Is(err, ErrStoreNotFound) {
			return nil, err
		}
	}
	s.ensureMaps()
	return s, nil
}

func (s *Stores) ensureMaps() {
	if s.ChapterMap == nil {
		s.ChapterMap = reference.ChapterMap{}
	}
	if s.Records == nil {
		s.Records = map[string]reference.Record{}
	}
	if s.Authors == nil {
		s.Authors = map[string]reference.Author{}
	}
}

// Save writes all three stores to dir, creating it if needed. Each file
// is replaced atomically.
func Save(dir string, s *Stores) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	s.ensureMaps()
	if err := WriteJSON(filepath.Join(dir, ChapterMapFile), s.ChapterMap); err != nil {
		return err
	}
	if err := WriteJSON(filepath.Join(dir, ReferencesFile), s.Records); err != nil {
		return err
	}
	return WriteJSON(filepath.Join(dir, AuthorsFile), s.Authors)
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrStoreNotFound)
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Encode renders v as the stores are written: two-space indent, no HTML
// escaping, trailing newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v to path through a temporary file in the same
// directory and a rename, so readers never see a partial file.
func WriteJSON(path string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic replaces path with data via a temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("syncing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return fmt.Errorf("setting mode on %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
