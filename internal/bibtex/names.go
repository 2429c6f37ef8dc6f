package bibtex

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name is one parsed author name.
type Name struct {
	First string
	Last  string
}

var (
	authorSepRegex  = regexp.MustCompile(`(?i)\s+and\s+`)
	keyCharRegex    = regexp.MustCompile(`[^a-z0-9 ]`)
	keySpaceRegex   = regexp.MustCompile(`\s+`)
	displayBraceSet = "{}"
)

// ParseAuthors splits a BibTeX author field on " and ".
//
// Supported formats per segment:
//   - "Smith, John" → first="John", last="Smith"
//   - "John Smith"  → first="John", last="Smith" (last token is the surname)
//   - "OpenAI"      → last="OpenAI"
func ParseAuthors(raw string) []Name {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var names []Name
	for _, p := range authorSepRegex.Split(raw, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		names = append(names, ParseName(p))
	}
	return names
}

// ParseName parses a single "Last, First" or "First Last" name.
func ParseName(s string) Name {
	if idx := strings.Index(s, ","); idx >= 0 {
		return Name{
			First: strings.TrimSpace(s[idx+1:]),
			Last:  strings.TrimSpace(s[:idx]),
		}
	}
	words := strings.Fields(s)
	switch len(words) {
	case 0:
		return Name{}
	case 1:
		return Name{Last: words[0]}
	}
	return Name{
		First: strings.Join(words[:len(words)-1], " "),
		Last:  words[len(words)-1],
	}
}

// Key returns the normalized author key, e.g. "dziri_nouha", or the bare
// normalized last name when there is no first name.
func (n Name) Key() string {
	last := normalizeKeyPart(n.Last)
	first := normalizeKeyPart(n.First)
	if first != "" {
		return last + "_" + first
	}
	return last
}

// DisplayName returns "First Last" with TeX grouping braces removed.
func (n Name) DisplayName() string {
	name := n.Last
	if n.First != "" {
		name = n.First + " " + n.Last
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(displayBraceSet, r) {
			return -1
		}
		return r
	}, name))
}

// normalizeKeyPart strips accents, lowercases, keeps [a-z0-9 ] and joins
// words with underscores.
func normalizeKeyPart(s string) string {
	s = foldAccents(s)
	s = keyCharRegex.ReplaceAllString(strings.ToLower(s), "")
	return keySpaceRegex.ReplaceAllString(strings.TrimSpace(s), "_")
}

// foldAccents decomposes s and drops combining marks ("é" → "e").
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
