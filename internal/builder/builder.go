// Package builder resolves every document's reference list against the
// bibliography and merges the result into the persisted stores without
// disturbing enrichment written by other tools.
package builder

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/matsen/citemap/internal/bibtex"
	"github.com/matsen/citemap/internal/document"
	"github.com/matsen/citemap/internal/logging"
	"github.com/matsen/citemap/internal/matcher"
	"github.com/matsen/citemap/internal/reference"
)

// Prior is the store content from the previous run. Nil maps are treated
// as empty.
type Prior struct {
	Records map[string]reference.Record
	Authors map[string]reference.Author
}

// Options configures a build.
type Options struct {
	Thresholds matcher.Thresholds
	Logger     *zerolog.Logger
}

// Match is one resolved reference-list entry.
type Match struct {
	Slug   string         `json:"slug"`
	Number int            `json:"number"`
	Key    string         `json:"key"`
	Method matcher.Method `json:"method"`
	Score  float64        `json:"score"`
}

// Unmatched is an entry that fell through to a synthesized record.
type Unmatched struct {
	Slug   string `json:"slug"`
	Number int    `json:"number"`
	Key    string `json:"key"`
	Title  string `json:"title"`
}

// Result is the output of a build.
type Result struct {
	ChapterMap reference.ChapterMap
	Records    map[string]reference.Record
	Authors    map[string]reference.Author

	// Keys lists record keys in first-seen order.
	Keys      []string
	Matches   []Match
	Unmatched []Unmatched
	Stats     matcher.Stats
}

// work is a resolved bibliography entry waiting to become a record.
type work struct {
	entry   bibtex.Entry
	htmlURL string
}

// Build matches every document entry, in document order, and produces
// the merged stores. Records and authors not produced by this run are
// dropped.
func Build(bib *bibtex.Bibliography, docs []*document.Document, prior Prior, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = &logging.Nop
	}

	ix := matcher.NewIndex(bib, opts.Thresholds)
	res := &Result{
		ChapterMap: make(reference.ChapterMap, len(docs)),
		Records:    make(map[string]reference.Record),
		Authors:    make(map[string]reference.Author),
		Stats:      matcher.Stats{},
	}

	works := make(map[string]*work)
	synth := &syntheticKeys{bib: bib, owners: make(map[string]string)}
	for _, doc := range docs {
		if _, dup := res.ChapterMap[doc.Slug]; dup {
			return nil, fmt.Errorf("document %q listed twice", doc.Slug)
		}
		frag := make(reference.Fragment, len(doc.Entries))
		res.ChapterMap[doc.Slug] = frag

		for _, e := range doc.Entries {
			r := ix.Match(e)
			if !r.Matched() {
				if key := synth.assign(r.Key, e); key != r.Key {
					log.Debug().
						Str("doc", doc.Slug).
						Int("number", e.Number).
						Str("taken", r.Key).
						Str("key", key).
						Msg("Synthetic key already taken, using suffixed key")
					r.Key = key
					r.Entry.Key = key
				}
			}
			frag[e.Number] = r.Key
			res.Stats.Add(r)
			res.Matches = append(res.Matches, Match{
				Slug: doc.Slug, Number: e.Number, Key: r.Key, Method: r.Method, Score: r.Score,
			})

			w, seen := works[r.Key]
			if !seen {
				w = &work{entry: r.Entry}
				works[r.Key] = w
				res.Keys = append(res.Keys, r.Key)
			}
			if w.htmlURL == "" && e.URL != "" {
				w.htmlURL = e.URL
			}

			if r.Matched() {
				log.Debug().
					Str("doc", doc.Slug).
					Int("number", e.Number).
					Str("key", r.Key).
					Str("method", string(r.Method)).
					Float64("score", r.Score).
					Msg("Matched reference")
				continue
			}
			res.Unmatched = append(res.Unmatched, Unmatched{
				Slug: doc.Slug, Number: e.Number, Key: r.Key, Title: firstNonEmpty(e.Title, e.Venue),
			})
			log.Warn().
				Str("doc", doc.Slug).
				Int("number", e.Number).
				Str("key", r.Key).
				Msg("No bibliography entry matched, synthesized record")
		}
	}

	for _, key := range res.Keys {
		w := works[key]
		var priorRec *reference.Record
		if p, ok := prior.Records[key]; ok {
			priorRec = &p
		}
		res.Records[key] = MergeRecord(Fields(w.entry, w.htmlURL), priorRec)

		for _, name := range bibtex.ParseAuthors(w.entry.Field("author")) {
			akey := name.Key()
			if akey == "" {
				continue
			}
			if _, done := res.Authors[akey]; done {
				continue
			}
			var priorAuthor *reference.Author
			if p, ok := prior.Authors[akey]; ok {
				priorAuthor = &p
			}
			res.Authors[akey] = MergeAuthor(name.DisplayName(), priorAuthor)
		}
	}

	log.Info().
		Int("documents", len(docs)).
		Int("entries", res.Stats.Total()).
		Int("records", len(res.Records)).
		Int("authors", len(res.Authors)).
		Int("unmatched", len(res.Unmatched)).
		Msg("Build complete")

	return res, nil
}

// syntheticKeys hands out synthetic keys so that two different works never
// share one. Entries with the same normalized text share a key, so a work
// cited twice still deduplicates.
type syntheticKeys struct {
	bib    *bibtex.Bibliography
	owners map[string]string // key -> normalized entry text
}

// assign returns base, or base with the first free suffix ("b", "c", ...)
// when base is a bibliography key or belongs to a different entry.
func (s *syntheticKeys) assign(base string, e document.Entry) string {
	text := matcher.NormalizeTitle(e.AllText)
	for i := 1; ; i++ {
		key := base
		if i > 1 {
			key = base + keySuffix(i)
		}
		if _, ok := s.bib.Lookup(key); ok {
			continue
		}
		if owner, ok := s.owners[key]; ok && owner != text {
			continue
		}
		s.owners[key] = text
		return key
	}
}

// keySuffix returns "b" for 2 through "z" for 26, then the number itself.
func keySuffix(i int) string {
	if i <= 26 {
		return string(rune('a' + i - 1))
	}
	return strconv.Itoa(i)
}

var doiPrefixRegex = regexp.MustCompile(`^https?://doi\.org/`)

// Fields computes the builder-owned fields of a record from its
// bibliography entry. htmlURL is the first link seen for the key in any
// document and is used when the entry itself has no URL.
func Fields(e bibtex.Entry, htmlURL string) reference.Record {
	var authors []string
	for _, name := range bibtex.ParseAuthors(e.Field("author")) {
		if k := name.Key(); k != "" {
			authors = append(authors, k)
		}
	}

	venue := bibtex.Venue(e)
	doi := strings.TrimSpace(e.Field("doi"))

	url := bibtex.URL(e)
	if url == "" {
		url = htmlURL
	}
	if url == "" && doi != "" {
		url = "https://doi.org/" + doiPrefixRegex.ReplaceAllString(doi, "")
	}

	return reference.Record{
		Title:      bibtex.CleanLatex(bibtex.Title(e)),
		Authors:    authors,
		Year:       bibtex.Year(e),
		Venue:      venue,
		VenueShort: bibtex.ShortVenue(venue),
		URL:        url,
		DOI:        doi,
		Type:       bibtex.Classify(e),
	}
}

// MergeRecord overlays the builder-owned fields onto the prior record.
// Every other prior field is kept verbatim; a record without a screenshot
// field gets a null one.
func MergeRecord(fields reference.Record, prior *reference.Record) reference.Record {
	out := fields
	if prior != nil {
		out.Enrichment = make(map[string]json.RawMessage, len(prior.Enrichment)+1)
		for k, v := range prior.Enrichment {
			out.Enrichment[k] = v
		}
	} else {
		out.Enrichment = reference.NewRecordEnrichment()
	}
	if _, ok := out.Enrichment["screenshot"]; !ok {
		out.Enrichment["screenshot"] = reference.NewRecordEnrichment()["screenshot"]
	}
	return out
}

// MergeAuthor refreshes the display name of a prior author, or creates a
// new author with empty enrichment.
func MergeAuthor(displayName string, prior *reference.Author) reference.Author {
	if prior == nil {
		return reference.Author{DisplayName: displayName, Enrichment: reference.NewAuthorEnrichment()}
	}
	out := reference.Author{DisplayName: displayName, Enrichment: make(map[string]json.RawMessage, len(prior.Enrichment))}
	for k, v := range prior.Enrichment {
		out.Enrichment[k] = v
	}
	return out
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
