package matcher

import (
	"math"
	"testing"

	"github.com/matsen/citemap/internal/bibtex"
	"github.com/matsen/citemap/internal/document"
)

const testBib = `
@article{smith2020foo,
  author = {Smith, John},
  title = {Foo Bar Baz Methods},
  journal = {Journal of Foo},
  year = {2020},
  url = {https://www.example.com/foo/}
}
@misc{doe2023llm,
  author = {Doe, Jane},
  title = {Large Language Models Are Interesting},
  year = {2023},
  url = {https://arxiv.org/abs/2301.00001}
}
@article{lee2019doi,
  author = {Lee, Kim},
  title = {Something With a DOI},
  year = {2019},
  doi = {10.1000/abc}
}
@misc{planet2021,
  journal = {The Daily Planet},
  year = {2021},
  howpublished = {\url{https://planet.example.com/story}}
}
@article{garcia2018protein,
  author = {Garcia, Maria},
  title = {Protein Folding Dynamics at Scale},
  year = {2018}
}
`

func newTestIndex(t *testing.T, text string) *Index {
	t.Helper()
	bib := bibtex.Parse(text)
	if len(bib.Errors) != 0 {
		t.Fatalf("fixture has parse errors: %v", bib.Errors)
	}
	return NewIndex(bib, Thresholds{})
}

func TestMatch_Cascade(t *testing.T) {
	ix := newTestIndex(t, testBib)

	tests := []struct {
		name       string
		entry      document.Entry
		wantKey    string
		wantMethod Method
	}{
		{
			name:       "exact url ignoring scheme and www",
			entry:      document.Entry{URL: "http://example.com/foo"},
			wantKey:    "smith2020foo",
			wantMethod: MethodURL,
		},
		{
			name:       "pdf path resolves through identifier",
			entry:      document.Entry{URL: "https://arxiv.org/pdf/2301.00001"},
			wantKey:    "doe2023llm",
			wantMethod: MethodIdentifier,
		},
		{
			name:       "dx doi variant",
			entry:      document.Entry{URL: "http://dx.doi.org/10.1000/abc"},
			wantKey:    "lee2019doi",
			wantMethod: MethodURL,
		},
		{
			name:       "partial url with query string",
			entry:      document.Entry{URL: "https://planet.example.com/story?utm=1"},
			wantKey:    "planet2021",
			wantMethod: MethodURLPartial,
		},
		{
			name:       "fuzzy title",
			entry:      document.Entry{Title: "Protein folding dynamics at scale."},
			wantKey:    "garcia2018protein",
			wantMethod: MethodTitleFuzzy,
		},
		{
			name:       "title found through journal fallback",
			entry:      document.Entry{Title: "The Daily Planet"},
			wantKey:    "planet2021",
			wantMethod: MethodTitleFuzzy,
		},
		{
			name:       "author and year",
			entry:      document.Entry{Authors: "Garcia, M.", Year: 2018, Title: "Dynamics of folded proteins"},
			wantKey:    "garcia2018protein",
			wantMethod: MethodAuthorYear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ix.Match(tt.entry)
			if r.Key != tt.wantKey || r.Method != tt.wantMethod {
				t.Errorf("Match() = (%s, %s), want (%s, %s)", r.Key, r.Method, tt.wantKey, tt.wantMethod)
			}
			if !r.Matched() {
				t.Error("Matched() = false")
			}
			if r.Entry.Key != tt.wantKey {
				t.Errorf("Result.Entry.Key = %q", r.Entry.Key)
			}
		})
	}
}

func TestMatch_ContainmentScore(t *testing.T) {
	ix := newTestIndex(t, testBib)
	r := ix.Match(document.Entry{
		AllText: "M. Garcia. Protein Folding Dynamics at Scale. Some Journal, vol. 3, pp. 1-20.",
	})

	if r.Key != "garcia2018protein" || r.Method != MethodTitleFuzzy {
		t.Fatalf("Match() = (%s, %s)", r.Key, r.Method)
	}
	if r.Score != 0.95 {
		t.Errorf("Score = %v, want containment score 0.95", r.Score)
	}
}

func TestMatch_AuthorYearScore(t *testing.T) {
	ix := newTestIndex(t, testBib)
	e := document.Entry{Authors: "Garcia, M.", Year: 2018, Title: "Dynamics of folded proteins"}
	r := ix.Match(e)

	want := 0.5 + 0.5*Similarity(e.Title, "Protein Folding Dynamics at Scale")
	if math.Abs(r.Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", r.Score, want)
	}

	e.Year = 2017
	if r := ix.Match(e); r.Method == MethodAuthorYear {
		t.Error("author-year stage must require an equal year")
	}
}

func TestMatch_AuthorYearSuffixedYear(t *testing.T) {
	ix := newTestIndex(t, `@article{kim2020a, author = {Kim, Ana}, title = {Learning Widgets Quickly}, year = {2020a}}`)
	e := document.Entry{Authors: "Kim, A.", Year: 2020, Title: "Learning"}

	r := ix.Match(e)
	if r.Method != MethodAuthorYear || r.Key != "kim2020a" {
		t.Errorf("Match() = %s %q, want author-year kim2020a", r.Method, r.Key)
	}
}

func TestMatch_SyntheticWithoutYear(t *testing.T) {
	ix := newTestIndex(t, testBib)
	r := ix.Match(document.Entry{Authors: "Nobody, A.", Title: "The Unfindable Paper"})

	if r.Method != MethodSynthetic || r.Matched() {
		t.Fatalf("Method = %s, want synthetic", r.Method)
	}
	if r.Key != "nobodyunfindable" {
		t.Errorf("Key = %q, want nobodyunfindable", r.Key)
	}
	if r.Entry.Type != "misc" {
		t.Errorf("Entry.Type = %q, want misc", r.Entry.Type)
	}
	if bibtex.Classify(r.Entry) != "misc" {
		t.Errorf("Classify() = %q", bibtex.Classify(r.Entry))
	}
}

func TestMatch_SyntheticWithYear(t *testing.T) {
	ix := newTestIndex(t, testBib)
	r := ix.Match(document.Entry{
		Authors: "Quux, Z. 2022.",
		Year:    2022,
		Title:   "On Zebras",
		Venue:   "Zoo Letters",
		URL:     "https://zebra.invalid/paper",
	})

	if r.Key != "quux2022zebras" {
		t.Fatalf("Key = %q, want quux2022zebras", r.Key)
	}
	want := map[string]string{
		"author":  "Quux, Z.",
		"title":   "On Zebras",
		"year":    "2022",
		"url":     "https://zebra.invalid/paper",
		"journal": "Zoo Letters",
	}
	for k, v := range want {
		if got := r.Entry.Field(k); got != v {
			t.Errorf("field %s = %q, want %q", k, got, v)
		}
	}
}

func TestMatch_TiesKeepFirstRecord(t *testing.T) {
	ix := newTestIndex(t, `
@misc{first, title = {Same Title Here}}
@misc{second, title = {Same Title Here}}
`)
	e := document.Entry{Title: "Same title here"}

	for i := 0; i < 5; i++ {
		r := ix.Match(e)
		if r.Key != "first" {
			t.Fatalf("run %d: Key = %q, want first", i, r.Key)
		}
	}
}

func TestMatch_LaterURLOverwritesKey(t *testing.T) {
	ix := newTestIndex(t, `
@misc{a1, title = {A}, url = {https://dup.example.com}}
@misc{a2, title = {B}, url = {https://dup.example.com/}}
`)
	if r := ix.Match(document.Entry{URL: "https://dup.example.com"}); r.Key != "a2" {
		t.Errorf("Key = %q, want a2", r.Key)
	}
}

func TestStats(t *testing.T) {
	s := Stats{}
	s.Add(Result{Method: MethodURL})
	s.Add(Result{Method: MethodURL})
	s.Add(Result{Method: MethodSynthetic})

	if s[MethodURL] != 2 || s[MethodSynthetic] != 1 || s.Total() != 3 {
		t.Errorf("Stats = %v", s)
	}
}

func TestThresholds_WithDefaults(t *testing.T) {
	got := Thresholds{TitleAccept: 0.8}.WithDefaults()
	want := DefaultThresholds()
	want.TitleAccept = 0.8
	if got != want {
		t.Errorf("WithDefaults() = %+v, want %+v", got, want)
	}
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{"defaults", DefaultThresholds(), false},
		{"zero value", Thresholds{}, false},
		{"score above one", Thresholds{TitleAccept: 1.2}, true},
		{"negative score", Thresholds{AuthorYearAccept: -0.1}, true},
		{"negative length ratio", Thresholds{LengthRatio: -1}, true},
		{"negative containment min title", Thresholds{ContainmentMinTitle: -3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.th.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMatch_RaisedThresholdRejects(t *testing.T) {
	bib := bibtex.Parse(testBib)
	ix := NewIndex(bib, Thresholds{TitleAccept: 0.99, AuthorYearAccept: 0.99})

	r := ix.Match(document.Entry{Title: "Protein folding dynamic at scale"})
	if r.Method != MethodSynthetic {
		t.Errorf("Method = %s, want synthetic under strict thresholds", r.Method)
	}
}
