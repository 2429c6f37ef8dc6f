// Package document parses a publication's HTML into citation markers and
// reference-list entries, keeping byte positions so the markup can be
// rewritten without re-serialising it.
package document

import (
	"fmt"
	"os"
	"sort"
)

// Span is a half-open byte range [Start, End) in the source.
type Span struct {
	Start int
	End   int
}

// Located reports whether the span was found in the source.
func (s Span) Located() bool {
	return s.End > s.Start
}

// Citation is one in-text marker <a href="#ref-N">.
type Citation struct {
	Number     int
	NumberSpan Span // digits of N inside the href
}

// Entry is one <li id="ref-N"> in the reference list.
type Entry struct {
	Number  int
	Authors string // <span class="authors"> text, whitespace collapsed
	Title   string // <span class="title"> text
	Venue   string // <span class="venue"> text
	URL     string // first http(s) link inside the entry
	AllText string // all entry text, whitespace collapsed
	Year    int    // best-effort year, 0 when none was found

	IDSpan Span // digits of N inside the id attribute
	Block  Span // <li ...> through </li>; zero when Closed is false
	Lead   int  // start of the whitespace run preceding Block
	Closed bool // false when the entry's </li> was never seen
}

// Document is one parsed HTML file.
type Document struct {
	Slug      string
	Path      string
	Source    []byte
	Citations []Citation
	Entries   []Entry

	// HasReferences reports whether a references section was found.
	HasReferences bool
}

// ParseFile reads and parses an HTML document.
func ParseFile(slug, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", slug, err)
	}
	doc := Parse(slug, data)
	doc.Path = path
	return doc, nil
}

// Entry returns the reference-list entry with the given number.
func (d *Document) Entry(n int) (Entry, bool) {
	for _, e := range d.Entries {
		if e.Number == n {
			return e, true
		}
	}
	return Entry{}, false
}

// EntryNumbers returns the reference-list numbers in ascending order,
// without duplicates.
func (d *Document) EntryNumbers() []int {
	seen := make(map[int]bool, len(d.Entries))
	var nums []int
	for _, e := range d.Entries {
		if !seen[e.Number] {
			seen[e.Number] = true
			nums = append(nums, e.Number)
		}
	}
	sort.Ints(nums)
	return nums
}

// CitationCounts returns how many markers target each local number.
func (d *Document) CitationCounts() map[int]int {
	counts := make(map[int]int)
	for _, c := range d.Citations {
		counts[c.Number]++
	}
	return counts
}

// Edit replaces the source bytes in Span with Text.
type Edit struct {
	Span Span
	Text string
}

// Render returns the source with edits applied. Edits are applied in
// position order; an edit that starts inside an earlier one is dropped, so
// deleting a block also discards any rewrites nested in it.
func (d *Document) Render(edits []Edit) []byte {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Span.Start < sorted[j].Span.Start
	})

	out := make([]byte, 0, len(d.Source))
	cursor := 0
	for _, e := range sorted {
		if e.Span.Start < cursor || e.Span.End > len(d.Source) || e.Span.End < e.Span.Start {
			continue
		}
		out = append(out, d.Source[cursor:e.Span.Start]...)
		out = append(out, e.Text...)
		cursor = e.Span.End
	}
	return append(out, d.Source[cursor:]...)
}
