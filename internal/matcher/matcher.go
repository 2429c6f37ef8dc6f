// Package matcher resolves reference-list entries to canonical
// bibliography keys through a fixed cascade of increasingly fuzzy stages.
package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/matsen/citemap/internal/bibtex"
	"github.com/matsen/citemap/internal/document"
)

// Method names the stage that produced a match.
type Method string

const (
	MethodURL        Method = "url"
	MethodIdentifier Method = "identifier"
	MethodURLPartial Method = "url-partial"
	MethodTitleFuzzy Method = "title-fuzzy"
	MethodAuthorYear Method = "author-year"
	MethodSynthetic  Method = "synthetic"
)

// Methods lists the stages in cascade order.
var Methods = []Method{
	MethodURL, MethodIdentifier, MethodURLPartial,
	MethodTitleFuzzy, MethodAuthorYear, MethodSynthetic,
}

// Result is the outcome of matching one entry.
type Result struct {
	Key    string
	Method Method
	Score  float64
	// Entry is the matched bibliography entry, or the synthesized one
	// when Method is MethodSynthetic.
	Entry bibtex.Entry
}

// Matched reports whether the entry resolved to an existing record.
func (r Result) Matched() bool {
	return r.Method != MethodSynthetic
}

// keyed is one index slot; slots keep insertion order.
type keyed struct {
	value string
	key   string
}

// orderedIndex is an insertion-ordered string index. Re-adding a value
// replaces its key but keeps its original position.
type orderedIndex struct {
	slots []keyed
	pos   map[string]int
}

func newOrderedIndex() *orderedIndex {
	return &orderedIndex{pos: make(map[string]int)}
}

func (o *orderedIndex) put(value, key string) {
	if i, ok := o.pos[value]; ok {
		o.slots[i].key = key
		return
	}
	o.pos[value] = len(o.slots)
	o.slots = append(o.slots, keyed{value: value, key: key})
}

func (o *orderedIndex) get(value string) (string, bool) {
	i, ok := o.pos[value]
	if !ok {
		return "", false
	}
	return o.slots[i].key, true
}

// titleSlot is a record title prepared for repeated comparison.
type titleSlot struct {
	key   string
	norm  string
	runes int
	sm    *difflib.SequenceMatcher // second sequence fixed to norm
}

// Index holds the lookup structures built from one bibliography.
type Index struct {
	bib        *bibtex.Bibliography
	thresholds Thresholds

	urls   *orderedIndex
	ids    *orderedIndex
	titles []titleSlot
}

// NewIndex precomputes the URL, identifier and title indices in
// bibliography file order.
func NewIndex(bib *bibtex.Bibliography, thresholds Thresholds) *Index {
	ix := &Index{
		bib:        bib,
		thresholds: thresholds.WithDefaults(),
		urls:       newOrderedIndex(),
		ids:        newOrderedIndex(),
	}

	for _, e := range bib.Entries {
		if u := bibtex.URL(e); u != "" {
			ix.urls.put(NormalizeURL(u), e.Key)
			if id := Identifier(u); id != "" {
				ix.ids.put(id, e.Key)
			}
		}
		if doi := e.Field("doi"); doi != "" {
			doiURL := "doi.org/" + doi
			ix.urls.put(NormalizeURL(doiURL), e.Key)
			ix.urls.put(NormalizeURL("https://"+doiURL), e.Key)
			ix.urls.put(NormalizeURL("http://dx."+doiURL), e.Key)
		}

		if norm := NormalizeTitle(bibtex.Title(e)); norm != "" {
			sm := difflib.NewMatcher(nil, chars(norm))
			ix.titles = append(ix.titles, titleSlot{
				key:   e.Key,
				norm:  norm,
				runes: utf8.RuneCountInString(norm),
				sm:    sm,
			})
		}
	}
	return ix
}

// Thresholds returns the thresholds in effect.
func (ix *Index) Thresholds() Thresholds {
	return ix.thresholds
}

// Match runs the cascade for one entry. It always returns a key: entries
// no stage accepts get a synthesized one.
func (ix *Index) Match(e document.Entry) Result {
	if r, ok := ix.matchURL(e); ok {
		return r
	}
	if r, ok := ix.matchTitle(e); ok {
		return r
	}
	if r, ok := ix.matchAuthorYear(e); ok {
		return r
	}
	return Synthesize(e)
}

// matchURL runs the exact, identifier and partial URL stages.
func (ix *Index) matchURL(e document.Entry) (Result, bool) {
	norm := NormalizeURL(e.URL)
	if norm == "" {
		return Result{}, false
	}

	if key, ok := ix.urls.get(norm); ok {
		return ix.result(key, MethodURL, 1), true
	}
	if id := Identifier(e.URL); id != "" {
		if key, ok := ix.ids.get(id); ok {
			return ix.result(key, MethodIdentifier, 1), true
		}
	}
	for _, slot := range ix.urls.slots {
		if strings.Contains(slot.value, norm) || strings.Contains(norm, slot.value) {
			return ix.result(slot.key, MethodURLPartial, 1), true
		}
	}
	return Result{}, false
}

// matchTitle compares every candidate field against every record title and
// keeps the first strictly best pair.
func (ix *Index) matchTitle(e document.Entry) (Result, bool) {
	th := ix.thresholds
	best := 0.0
	bestKey := ""

	for _, raw := range []string{e.Title, e.Venue, e.Authors, e.AllText} {
		cand := NormalizeTitle(raw)
		if cand == "" {
			continue
		}
		candChars := chars(cand)
		candLen := len(candChars)

		for i := range ix.titles {
			slot := &ix.titles[i]
			var score float64
			if float64(candLen) > float64(slot.runes)*th.LengthRatio && slot.runes > th.ContainmentMinTitle && strings.Contains(cand, slot.norm) {
				score = th.ContainmentScore
			} else {
				slot.sm.SetSeq1(candChars)
				// Ratio never exceeds these bounds; skipping is safe
				// because only a strictly greater score replaces best.
				if slot.sm.RealQuickRatio() <= best || slot.sm.QuickRatio() <= best {
					continue
				}
				score = slot.sm.Ratio()
			}
			if score > best {
				best = score
				bestKey = slot.key
			}
		}
	}

	if bestKey == "" || best < th.TitleAccept {
		return Result{}, false
	}
	return ix.result(bestKey, MethodTitleFuzzy, best), true
}

// matchAuthorYear scores same-year records whose first author's surname
// appears in the entry text.
func (ix *Index) matchAuthorYear(e document.Entry) (Result, bool) {
	if e.Year == 0 {
		return Result{}, false
	}
	authors := strings.ToLower(e.Authors)
	all := strings.ToLower(e.AllText)
	entryTitle := firstNonEmpty(e.Title, e.Venue, e.AllText)

	best := 0.0
	bestKey := ""
	for _, rec := range ix.bib.Entries {
		// Numeric comparison: a year field of "2020a" counts as 2020.
		if bibtex.Year(rec) != e.Year {
			continue
		}
		names := bibtex.ParseAuthors(rec.Field("author"))
		if len(names) == 0 {
			continue
		}
		surname := strings.ToLower(names[0].Last)
		if surname == "" || !(strings.Contains(authors, surname) || strings.Contains(all, surname)) {
			continue
		}
		score := 0.5 + 0.5*Similarity(entryTitle, rec.Field("title"))
		if score > best {
			best = score
			bestKey = rec.Key
		}
	}

	if bestKey == "" || best < ix.thresholds.AuthorYearAccept {
		return Result{}, false
	}
	return ix.result(bestKey, MethodAuthorYear, best), true
}

func (ix *Index) result(key string, method Method, score float64) Result {
	entry, _ := ix.bib.Lookup(key)
	return Result{Key: key, Method: method, Score: score, Entry: entry}
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// Stats counts results per method.
type Stats map[Method]int

// Add records one result.
func (s Stats) Add(r Result) {
	s[r.Method]++
}

// Total returns the number of results recorded.
func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}
