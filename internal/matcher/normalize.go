package matcher

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	schemeRegex     = regexp.MustCompile(`^https?://`)
	wwwRegex        = regexp.MustCompile(`^www\.`)
	identifierRegex = regexp.MustCompile(`/(?:abs|pdf)/(\d+\.\d+)`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Zs}]`)
)

// NormalizeURL strips scheme, a leading "www." and trailing slashes, and
// lowercases the rest.
func NormalizeURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	u = schemeRegex.ReplaceAllString(u, "")
	u = wwwRegex.ReplaceAllString(u, "")
	u = strings.TrimRight(u, "/")
	return strings.ToLower(u)
}

// Identifier extracts a numeric paper identifier from an /abs/ or /pdf/
// path, e.g. "2301.00001".
func Identifier(u string) string {
	if m := identifierRegex.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// NormalizeTitle lowercases, drops punctuation and collapses whitespace.
func NormalizeTitle(s string) string {
	s = punctRegex.ReplaceAllString(strings.ToLower(s), "")
	return strings.Join(strings.Fields(s), " ")
}

// Similarity returns the difflib ratio of two normalized titles, or 0 when
// either is empty.
func Similarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	return difflib.NewMatcher(chars(na), chars(nb)).Ratio()
}

// chars splits s into one element per rune, the unit difflib compares.
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
