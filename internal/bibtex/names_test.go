package bibtex

import "testing"

func TestParseAuthors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKeys []string
	}{
		{
			name:     "last comma first",
			input:    "Smith, John and Doe, Jane",
			wantKeys: []string{"smith_john", "doe_jane"},
		},
		{
			name:     "first last",
			input:    "John Smith AND Jane Q. Doe",
			wantKeys: []string{"smith_john", "doe_jane_q"},
		},
		{
			name:     "single token organization",
			input:    "OpenAI",
			wantKeys: []string{"openai"},
		},
		{
			name:     "accents folded",
			input:    "Dziri, Nouha and Müller, José",
			wantKeys: []string{"dziri_nouha", "muller_jose"},
		},
		{
			name:     "braced organization",
			input:    "{European Commission}",
			wantKeys: []string{"commission_european"},
		},
		{
			name:  "empty",
			input: "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := ParseAuthors(tt.input)
			if len(names) != len(tt.wantKeys) {
				t.Fatalf("ParseAuthors(%q) returned %d names, want %d", tt.input, len(names), len(tt.wantKeys))
			}
			for i, n := range names {
				if got := n.Key(); got != tt.wantKeys[i] {
					t.Errorf("name[%d].Key() = %q, want %q", i, got, tt.wantKeys[i])
				}
			}
		})
	}
}

func TestName_DisplayName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Smith, John", "John Smith"},
		{"{OpenAI}", "OpenAI"},
		{"van {der} Berg, Anna", "Anna van der Berg"},
	}

	for _, tt := range tests {
		if got := ParseName(tt.input).DisplayName(); got != tt.want {
			t.Errorf("ParseName(%q).DisplayName() = %q, want %q", tt.input, got, tt.want)
		}
	}
}
