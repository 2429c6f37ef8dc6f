// Package author classifies author records for the enrichment hand-off.
package author

import (
	"sort"
	"strings"

	"github.com/matsen/citemap/internal/reference"
)

// orgWords mark a key as an institution rather than a person.
var orgWords = []string{
	"commission", "council", "institute", "ministry", "government",
	"department", "agency", "authority", "foundation", "association",
	"organization", "corporation", "company",
}

// IsOrganization reports whether an author looks like an institution.
//
// Rules, first match wins:
//   - key without an underscore: "who"
//   - key containing an institutional word: "commission_european"
//   - display name of a single word, braces ignored: "{Wikipedia}"
func IsOrganization(key, displayName string) bool {
	if !strings.Contains(key, "_") {
		return true
	}
	lower := strings.ToLower(key)
	for _, w := range orgWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	name := strings.TrimSpace(strings.NewReplacer("{", "", "}", "").Replace(displayName))
	return len(name) > 1 && !strings.Contains(name, " ")
}

// Target is a person author still missing enrichment.
type Target struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"displayName"`
	Missing     []string `json:"missing"` // Enrichment fields that are unset
}

// EnrichTargets lists person authors lacking an affiliation or headshot,
// ordered by key. Organizations are skipped.
func EnrichTargets(authors map[string]reference.Author) []Target {
	keys := make([]string, 0, len(authors))
	for k := range authors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Target
	for _, k := range keys {
		a := authors[k]
		if IsOrganization(k, a.DisplayName) {
			continue
		}
		var missing []string
		if a.Affiliation() == "" {
			missing = append(missing, "affiliation")
		}
		if a.Headshot() == "" {
			missing = append(missing, "headshot")
		}
		if len(missing) > 0 {
			out = append(out, Target{Key: k, DisplayName: a.DisplayName, Missing: missing})
		}
	}
	return out
}
