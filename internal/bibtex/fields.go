package bibtex

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citemap/internal/reference"
)

// entryTypes maps raw BibTeX entry types to record types. Unknown types are misc.
var entryTypes = map[string]reference.RecordType{
	"article":       reference.TypeJournal,
	"inproceedings": reference.TypeConference,
	"conference":    reference.TypeConference,
	"book":          reference.TypeBook,
	"incollection":  reference.TypeBookChapter,
	"phdthesis":     reference.TypeThesis,
	"mastersthesis": reference.TypeThesis,
	"techreport":    reference.TypeReport,
	"misc":          reference.TypeMisc,
	"unpublished":   reference.TypePreprint,
}

// venueFields lists the fields consulted for the venue, in priority order.
var venueFields = []string{"journal", "booktitle", "publisher", "howpublished", "school"}

// shortVenueMinLen is the venue length above which an acronym is extracted.
const shortVenueMinLen = 40

var (
	acronymRegex     = regexp.MustCompile(`\(([A-Z]{2,}[^)]*)\)`)
	embeddedURLRegex = regexp.MustCompile(`\\url\{([^}]+)\}`)
	yearRegex        = regexp.MustCompile(`\d{4}`)
)

// Classify maps an entry's raw type to the fixed record type vocabulary.
func Classify(e Entry) reference.RecordType {
	if t, ok := entryTypes[e.Type]; ok {
		return t
	}
	return reference.TypeMisc
}

// Venue returns the first present venue-like field.
func Venue(e Entry) string {
	for _, f := range venueFields {
		if v, ok := e.Fields[f]; ok {
			return v
		}
	}
	return ""
}

// ShortVenue abbreviates long venue names to a parenthesized acronym when one
// is present. arXiv venues are passed through unchanged.
func ShortVenue(venue string) string {
	if venue == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(venue), "arxiv") {
		return venue
	}
	if len(venue) > shortVenueMinLen {
		if m := acronymRegex.FindStringSubmatch(venue); m != nil {
			return m[1]
		}
	}
	return venue
}

// Title returns the title, falling back to the journal field used by
// @misc news articles.
func Title(e Entry) string {
	if t := e.Fields["title"]; t != "" {
		return t
	}
	return e.Fields["journal"]
}

// Year returns the first four-digit run of the year field, or 0.
func Year(e Entry) int {
	m := yearRegex.FindString(e.Fields["year"])
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// URL returns the url field, or a \url{...} embedded in howpublished.
func URL(e Entry) string {
	if u := e.Fields["url"]; u != "" {
		return u
	}
	return EmbeddedURL(e.Fields["howpublished"])
}

// EmbeddedURL extracts the target of a \url{...} command.
func EmbeddedURL(s string) string {
	if m := embeddedURLRegex.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

var latexReplacements = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`[{}]`), ""},
	{regexp.MustCompile(`\\textit\s*`), ""},
	{regexp.MustCompile(`\\textbf\s*`), ""},
	{regexp.MustCompile(`\\emph\s*`), ""},
	{regexp.MustCompile(`\\'\{?(\w)\}?`), "$1"},
	{regexp.MustCompile(`\\"\{?(\w)\}?`), "$1"},
	{regexp.MustCompile(`\\\w+\s*`), ""},
}

// CleanLatex removes braces and common LaTeX commands from a field value.
func CleanLatex(s string) string {
	for _, r := range latexReplacements {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return strings.TrimSpace(s)
}
