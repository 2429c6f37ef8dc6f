package matcher

import (
	"math"
	"testing"

	"github.com/matsen/citemap/internal/document"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.Example.com/Path/", "example.com/path"},
		{"  http://example.com//  ", "example.com"},
		{"doi.org/10.1/X", "doi.org/10.1/x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://arxiv.org/abs/2301.00001", "2301.00001"},
		{"https://arxiv.org/pdf/2301.00001v2", "2301.00001"},
		{"https://example.com/abs/paper", ""},
	}
	for _, tt := range tests {
		if got := Identifier(tt.in); got != tt.want {
			t.Errorf("Identifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello,   World! ", "hello world"},
		{"Über-Effizienz: a study", "übereffizienz a study"},
		{"snake_case kept", "snake_case kept"},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("abcd", "bcde"); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Similarity(abcd, bcde) = %v, want 0.75", got)
	}
	if got := Similarity("Same", "same."); got != 1 {
		t.Errorf("Similarity after normalization = %v, want 1", got)
	}
	if got := Similarity("", "x"); got != 0 {
		t.Errorf("Similarity with empty side = %v, want 0", got)
	}
}

func TestSyntheticKey(t *testing.T) {
	tests := []struct {
		name  string
		entry document.Entry
		want  string
	}{
		{"full", document.Entry{Authors: "Smith, J.", Year: 2020, Title: "The Foo of Bar"}, "smith2020foo"},
		{"venue fallback", document.Entry{Authors: "Lee K", Venue: "A Journal"}, "leejournal"},
		{"no capitalized surname", document.Entry{Authors: "van Dyke", Year: 1999, Title: "Words"}, "unknown1999words"},
		{"all stop words", document.Entry{Authors: "Kim", Title: "Of the and"}, "kim"},
		{"punctuation cleaned", document.Entry{Authors: "Ng", Title: "\"Deep\" Learning"}, "ngdeep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SyntheticKey(tt.entry); got != tt.want {
				t.Errorf("SyntheticKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSyntheticAuthors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Smith, J., Doe, A.", "Smith, J. and Doe, A."},
		{"J. Smith, A. Doe, and K. Lee", "J. Smith and A. Doe and K. Lee"},
		{"Smith, John", "Smith, John"},
		{"A. Smith. 2020.", "A. Smith."},
		{"Smith, J. & Doe, A. 2021", "Smith, J. and Doe, A."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := syntheticAuthors(tt.in); got != tt.want {
			t.Errorf("syntheticAuthors(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
