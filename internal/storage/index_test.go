package storage

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matsen/citemap/internal/reference"
)

// setupTestIndex opens an index rebuilt from testStores.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	ix, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	n, err := ix.Rebuild(testStores())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("Rebuild() = %d, want 2", n)
	}
	return ix
}

func TestIndex_Get(t *testing.T) {
	ix := setupTestIndex(t)

	h, err := ix.Get("smith2020foo")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if h == nil {
		t.Fatal("Get() = nil, want record")
	}
	if h.Title != "Foo & <Bar>" || h.Year != 2020 || h.Type != reference.TypeJournal {
		t.Errorf("Get() = %+v", h)
	}
	if !reflect.DeepEqual(h.Authors, []string{"smith_john"}) {
		t.Errorf("Authors = %v", h.Authors)
	}

	missing, err := ix.Get("nope")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestIndex_Search(t *testing.T) {
	ix := setupTestIndex(t)

	tests := []struct {
		name    string
		filters SearchFilters
		want    []string
	}{
		{"title word", SearchFilters{Query: "methods"}, []string{"lee2019bar"}},
		{"author display name", SearchFilters{Query: "smith"}, []string{"smith2020foo"}},
		{"venue", SearchFilters{Query: "journal"}, []string{"smith2020foo"}},
		{"year", SearchFilters{Year: 2019}, []string{"lee2019bar"}},
		{"type", SearchFilters{Type: reference.TypeJournal}, []string{"smith2020foo"}},
		{"no filters", SearchFilters{}, []string{"lee2019bar", "smith2020foo"}},
		{"query and year disagree", SearchFilters{Query: "methods", Year: 2020}, nil},
		{"punctuation becomes phrase", SearchFilters{Query: "foo-bar"}, []string{"smith2020foo"}},
		{"no match", SearchFilters{Query: "zebra"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := ix.Search(tt.filters, 0)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			var got []string
			for _, h := range hits {
				got = append(got, h.Key)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIndex_SearchLimit(t *testing.T) {
	ix := setupTestIndex(t)
	hits, err := ix.Search(SearchFilters{}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("Search() returned %d hits, want 1", len(hits))
	}
}

func TestIndex_CitedBy(t *testing.T) {
	ix := setupTestIndex(t)

	locs, err := ix.CitedBy("lee2019bar")
	if err != nil {
		t.Fatalf("CitedBy() error = %v", err)
	}
	want := []reference.Location{{Slug: "chapter2", Number: 1}, {Slug: "index", Number: 2}}
	if !reflect.DeepEqual(locs, want) {
		t.Errorf("CitedBy() = %v, want %v", locs, want)
	}
}

func TestIndex_RebuildReplaces(t *testing.T) {
	ix := setupTestIndex(t)

	s := testStores()
	delete(s.Records, "lee2019bar")
	if _, err := ix.Rebuild(s); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	n, err := ix.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1 after rebuild", n)
	}
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  zebra  ", "zebra"},
		{"foo-bar", `"foo-bar"`},
		{`say "hi"`, `"say ""hi"""`},
	}
	for _, tt := range tests {
		if got := prepareFTSQuery(tt.in); got != tt.want {
			t.Errorf("prepareFTSQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
