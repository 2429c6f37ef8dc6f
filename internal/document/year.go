package document

import (
	"regexp"
	"strconv"
)

const (
	minYear = 1900
	maxYear = 2030
)

var (
	parenYearRegex    = regexp.MustCompile(`\((\d{4})\)`)
	bareYearRegex     = regexp.MustCompile(`\b(\d{4})\b`)
	trailingYearRegex = regexp.MustCompile(`(\d{4})\s*\.?\s*$`)
	anyYearRegex      = regexp.MustCompile(`\d{4}`)
)

// resolveYear picks an entry's year. In order: a parenthesized year in the
// text between field spans, then in the author text; a bare in-range year
// between spans, a trailing year on the author text, any in-range year in
// the author text; finally the first four digits of title, venue or author
// text when they fall in range.
func resolveYear(nonSpan, authors, title, venue string) int {
	for _, s := range []string{nonSpan, authors} {
		if m := parenYearRegex.FindStringSubmatch(s); m != nil {
			return atoi(m[1])
		}
	}

	if y := firstInRange(bareYearRegex, nonSpan); y != 0 {
		return y
	}
	if m := trailingYearRegex.FindStringSubmatch(authors); m != nil {
		if y := atoi(m[1]); inRange(y) {
			return y
		}
	}
	if y := firstInRange(bareYearRegex, authors); y != 0 {
		return y
	}

	for _, s := range []string{title, venue, authors} {
		if m := anyYearRegex.FindString(s); m != "" {
			if y := atoi(m); inRange(y) {
				return y
			}
		}
	}
	return 0
}

func firstInRange(re *regexp.Regexp, s string) int {
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if y := atoi(m[1]); inRange(y) {
			return y
		}
	}
	return 0
}

func inRange(y int) bool {
	return y >= minYear && y <= maxYear
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
