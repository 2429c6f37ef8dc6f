package bibtex

import (
	"fmt"
	"strings"

	"github.com/matsen/citemap/internal/reference"
)

// recordEntryTypes maps record types back to BibTeX entry types.
var recordEntryTypes = map[reference.RecordType]string{
	reference.TypeJournal:     "article",
	reference.TypeConference:  "inproceedings",
	reference.TypeBook:        "book",
	reference.TypeBookChapter: "incollection",
	reference.TypeThesis:      "phdthesis",
	reference.TypeReport:      "techreport",
	reference.TypeMisc:        "misc",
	reference.TypePreprint:    "unpublished",
}

// venueField returns the field a record's venue is written under.
func venueField(t reference.RecordType) string {
	switch t {
	case reference.TypeJournal:
		return "journal"
	case reference.TypeConference, reference.TypeBookChapter:
		return "booktitle"
	case reference.TypeBook, reference.TypeReport:
		return "publisher"
	case reference.TypeThesis:
		return "school"
	}
	return "howpublished"
}

// ToBibTeX converts a record to a BibTeX entry. names holds the display
// names of the record's authors in order.
func ToBibTeX(key string, rec reference.Record, names []string) string {
	entryType, ok := recordEntryTypes[rec.Type]
	if !ok {
		entryType = "misc"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, key))

	if len(names) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(names)))
	}
	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(rec.Title)))
	if rec.Venue != "" {
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", venueField(rec.Type), escapeLatex(rec.Venue)))
	}
	if rec.Year > 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", rec.Year))
	}
	if rec.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", rec.DOI))
	}
	if rec.URL != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", rec.URL))
	}

	b.WriteString("}\n")
	return b.String()
}

// formatAuthors writes display names as "Last, First and Last, First".
func formatAuthors(names []string) string {
	formatted := make([]string, 0, len(names))
	for _, name := range names {
		n := ParseName(name)
		if n.First != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", n.Last, n.First))
		} else {
			formatted = append(formatted, n.Last)
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
