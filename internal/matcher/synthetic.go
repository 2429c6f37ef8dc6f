package matcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citemap/internal/bibtex"
	"github.com/matsen/citemap/internal/document"
)

// stopWords are skipped when picking the content word of a synthetic key.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true, "on": true,
	"for": true, "and": true, "to": true, "from": true, "with": true,
}

var (
	surnameRegex      = regexp.MustCompile(`^[A-Z][a-z]+`)
	nonWordRegex      = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	trailingYearRegex = regexp.MustCompile(`\s*\d{4}\s*\.?\s*$`)
	authorListSep     = regexp.MustCompile(`(?i)\s*,\s*(?:and\s+)?|\s+and\s+|\s*&\s*`)
	initialsRegex     = regexp.MustCompile(`^(?:[A-Z]\.?\s*-?\s*)+$`)
)

// SyntheticKey builds <surname><year><word> for an unmatched entry, e.g.
// "smith2020foo". Missing parts are "unknown" for the surname and empty
// for year and word.
func SyntheticKey(e document.Entry) string {
	surname := "unknown"
	if m := surnameRegex.FindString(e.Authors); m != "" {
		surname = strings.ToLower(m)
	}

	year := ""
	if e.Year != 0 {
		year = strconv.Itoa(e.Year)
	}

	word := ""
	for _, w := range strings.Fields(firstNonEmpty(e.Title, e.Venue)) {
		w = strings.ToLower(nonWordRegex.ReplaceAllString(w, ""))
		if w != "" && !stopWords[w] {
			word = w
			break
		}
	}
	return surname + year + word
}

// Synthesize builds a misc entry from the entry's own fields.
func Synthesize(e document.Entry) Result {
	key := SyntheticKey(e)

	fields := map[string]string{
		"author": syntheticAuthors(e.Authors),
		"title":  e.Title,
		"url":    e.URL,
	}
	if e.Year != 0 {
		fields["year"] = strconv.Itoa(e.Year)
	}
	if e.Venue != "" {
		fields["journal"] = e.Venue
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}

	return Result{
		Key:    key,
		Method: MethodSynthetic,
		Entry:  bibtex.Entry{Key: key, Type: "misc", Fields: fields},
	}
}

// syntheticAuthors rewrites free-text author lists into the " and "
// separated form the bibliography parser reads. A trailing year is
// dropped. Comma-separated lists are split, and segments made only of
// initials are folded into the preceding surname ("Smith, J., Doe, A." →
// "Smith, J. and Doe, A."). A lone "Last, First" is left as is.
func syntheticAuthors(raw string) string {
	s := strings.TrimSpace(trailingYearRegex.ReplaceAllString(raw, ""))
	if s == "" {
		return ""
	}

	lower := strings.ToLower(s)
	if strings.Count(s, ",") < 2 && !strings.Contains(lower, " and ") && !strings.Contains(s, "&") {
		return s
	}

	var names []string
	for _, seg := range authorListSep.Split(s, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if initialsRegex.MatchString(seg) && len(names) > 0 && !strings.Contains(names[len(names)-1], ",") {
			names[len(names)-1] += ", " + seg
			continue
		}
		names = append(names, seg)
	}
	return strings.Join(names, " and ")
}
