package matcher

import "fmt"

// Thresholds are the tunable cut-offs of the fuzzy stages. A zero field
// means "use the default" (see WithDefaults), so a cut-off of exactly 0
// cannot be configured; use a tiny positive value instead.
type Thresholds struct {
	// TitleAccept is the minimum fuzzy title score accepted.
	TitleAccept float64 `yaml:"title_accept" json:"title_accept"`
	// AuthorYearAccept is the minimum author+year score accepted.
	AuthorYearAccept float64 `yaml:"author_year_accept" json:"author_year_accept"`
	// LengthRatio is how much longer than a record title a candidate must
	// be before containment is checked.
	LengthRatio float64 `yaml:"length_ratio" json:"length_ratio"`
	// ContainmentScore is the score given when the record title is
	// contained in a long candidate.
	ContainmentScore float64 `yaml:"containment_score" json:"containment_score"`
	// ContainmentMinTitle is the record title length (in characters) a
	// title must exceed for containment to apply.
	ContainmentMinTitle int `yaml:"containment_min_title" json:"containment_min_title"`
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TitleAccept:         0.65,
		AuthorYearAccept:    0.55,
		LengthRatio:         1.5,
		ContainmentScore:    0.95,
		ContainmentMinTitle: 10,
	}
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.TitleAccept == 0 {
		t.TitleAccept = d.TitleAccept
	}
	if t.AuthorYearAccept == 0 {
		t.AuthorYearAccept = d.AuthorYearAccept
	}
	if t.LengthRatio == 0 {
		t.LengthRatio = d.LengthRatio
	}
	if t.ContainmentScore == 0 {
		t.ContainmentScore = d.ContainmentScore
	}
	if t.ContainmentMinTitle == 0 {
		t.ContainmentMinTitle = d.ContainmentMinTitle
	}
	return t
}

// Validate checks that scores lie in [0, 1] and the remaining fields are
// not negative. Field names in errors are the yaml keys.
func (t Thresholds) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"title_accept", t.TitleAccept},
		{"author_year_accept", t.AuthorYearAccept},
		{"containment_score", t.ContainmentScore},
	} {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", f.name, f.v)
		}
	}
	if t.LengthRatio < 0 {
		return fmt.Errorf("length_ratio must not be negative, got %g", t.LengthRatio)
	}
	if t.ContainmentMinTitle < 0 {
		return fmt.Errorf("containment_min_title must not be negative, got %d", t.ContainmentMinTitle)
	}
	return nil
}
