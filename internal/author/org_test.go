package author

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/matsen/citemap/internal/reference"
)

func TestIsOrganization(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		displayName string
		want        bool
	}{
		{
			name:        "person",
			key:         "smith_john",
			displayName: "John Smith",
			want:        false,
		},
		{
			name:        "bare surname key",
			key:         "who",
			displayName: "WHO",
			want:        true,
		},
		{
			name:        "institutional word in key",
			key:         "commission_european",
			displayName: "European Commission",
			want:        true,
		},
		{
			name:        "institutional word is case-insensitive",
			key:         "Institute_Allen",
			displayName: "Allen Institute",
			want:        true,
		},
		{
			name:        "single word display name",
			key:         "wikipedia_x",
			displayName: "{Wikipedia}",
			want:        true,
		},
		{
			name:        "single initial is not an org",
			key:         "q_x",
			displayName: "Q",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOrganization(tt.key, tt.displayName); got != tt.want {
				t.Errorf("IsOrganization(%q, %q) = %v, want %v", tt.key, tt.displayName, got, tt.want)
			}
		})
	}
}

func TestEnrichTargets(t *testing.T) {
	authors := map[string]reference.Author{
		"smith_john": {DisplayName: "John Smith", Enrichment: reference.NewAuthorEnrichment()},
		"doe_jane": {
			DisplayName: "Jane Doe",
			Enrichment: map[string]json.RawMessage{
				"affiliation": json.RawMessage(`"UW"`),
				"headshot":    json.RawMessage(`"img/doe.jpg"`),
			},
		},
		"lee_kim": {
			DisplayName: "Kim Lee",
			Enrichment:  map[string]json.RawMessage{"affiliation": json.RawMessage(`"Fred Hutch"`)},
		},
		"commission_european": {DisplayName: "European Commission"},
	}

	want := []Target{
		{Key: "lee_kim", DisplayName: "Kim Lee", Missing: []string{"headshot"}},
		{Key: "smith_john", DisplayName: "John Smith", Missing: []string{"affiliation", "headshot"}},
	}
	if got := EnrichTargets(authors); !reflect.DeepEqual(got, want) {
		t.Errorf("EnrichTargets() = %+v, want %+v", got, want)
	}
}
