package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/citemap/internal/reference"
)

func testStores() *Stores {
	return &Stores{
		ChapterMap: reference.ChapterMap{
			"index":    {1: "smith2020foo", 2: "lee2019bar"},
			"chapter2": {1: "lee2019bar"},
		},
		Records: map[string]reference.Record{
			"smith2020foo": {
				Title:   "Foo & <Bar>",
				Authors: []string{"smith_john"},
				Year:    2020,
				Venue:   "Journal of Foo",
				URL:     "https://example.com/foo?a=1&b=2",
				Type:    reference.TypeJournal,
				Enrichment: map[string]json.RawMessage{
					"screenshot": json.RawMessage(`"shots/smith.png"`),
				},
			},
			"lee2019bar": {
				Title:      "Bar Methods",
				Authors:    []string{"lee_kim"},
				Year:       2019,
				Type:       reference.TypeConference,
				Enrichment: reference.NewRecordEnrichment(),
			},
		},
		Authors: map[string]reference.Author{
			"smith_john": {DisplayName: "John Smith", Enrichment: reference.NewAuthorEnrichment()},
			"lee_kim":    {DisplayName: "Kim Lee", Enrichment: reference.NewAuthorEnrichment()},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := Save(dir, testStores()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.ChapterMap["index"][2] != "lee2019bar" {
		t.Errorf("ChapterMap = %v", s.ChapterMap)
	}
	smith := s.Records["smith2020foo"]
	if smith.Title != "Foo & <Bar>" || smith.Year != 2020 || string(smith.Screenshot()) != `"shots/smith.png"` {
		t.Errorf("record = %+v", smith)
	}
	if s.Authors["lee_kim"].DisplayName != "Kim Lee" {
		t.Errorf("authors = %v", s.Authors)
	}
}

func TestSave_Format(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, testStores()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ReferencesFile))
	if err != nil {
		t.Fatalf("reading references: %v", err)
	}
	s := string(data)
	if !strings.HasSuffix(s, "}\n") {
		t.Error("store should end with a newline")
	}
	if !strings.Contains(s, "\n  \"lee2019bar\": {\n    \"authors\"") {
		t.Errorf("store not indented with two spaces:\n%s", s)
	}
	if !strings.Contains(s, `"Foo & <Bar>"`) || !strings.Contains(s, "a=1&b=2") {
		t.Errorf("HTML characters should not be escaped:\n%s", s)
	}
	if strings.Index(s, "lee2019bar") > strings.Index(s, "smith2020foo") {
		t.Error("keys should be written in sorted order")
	}

	cm, err := os.ReadFile(filepath.Join(dir, ChapterMapFile))
	if err != nil {
		t.Fatalf("reading chapter map: %v", err)
	}
	if !strings.Contains(string(cm), "\"chapter2\": {\n    \"1\": \"lee2019bar\"\n  }") {
		t.Errorf("chapter map format:\n%s", cm)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, testStores()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := Save(dir, testStores()); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 3 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("data dir contains %v, want only the three stores", names)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrStoreNotFound) {
		t.Errorf("Load() error = %v, want ErrStoreNotFound", err)
	}
}

func TestLoadPrior_MissingIsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := WriteJSON(filepath.Join(dir, AuthorsFile), map[string]reference.Author{
		"smith_john": {DisplayName: "John Smith"},
	}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	s, err := LoadPrior(dir)
	if err != nil {
		t.Fatalf("LoadPrior() error = %v", err)
	}
	if s.ChapterMap == nil || s.Records == nil || len(s.Records) != 0 {
		t.Errorf("missing stores should load as empty maps: %+v", s)
	}
	if len(s.Authors) != 1 {
		t.Errorf("Authors = %v", s.Authors)
	}
}

func TestLoadPrior_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ReferencesFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrior(dir); err == nil {
		t.Error("LoadPrior() should fail on a corrupt store")
	}
}
