package renumber

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/matsen/citemap/internal/document"
	"github.com/matsen/citemap/internal/logging"
	"github.com/matsen/citemap/internal/reference"
)

// Output is a rewritten document.
type Output struct {
	HTML     []byte
	Fragment reference.Fragment
	// Removed lists the original numbers whose entries were deleted.
	Removed []int
	// Unremoved lists numbers the plan removes but whose entry markup
	// could not be located. Those entries remain in HTML for manual cleanup.
	Unremoved []int
	// Unlocated lists numbers whose citation or id digits could not be
	// found in the raw markup. Those markers and ids are left unchanged.
	Unlocated []int
	// Rewritten counts citation markers that now point elsewhere.
	Rewritten int
}

// Apply rewrites doc according to plan: citation markers and kept entry
// ids get their final numbers and removed entries are cut out along with
// the whitespace before them. Numbers the plan does not know are left as
// they are. frag is the document's current chapter map fragment.
func Apply(doc *document.Document, frag reference.Fragment, plan *Plan, log *zerolog.Logger) (*Output, error) {
	if log == nil {
		log = &logging.Nop
	}
	if len(plan.Removed) > 0 && !doc.HasReferences {
		return nil, fmt.Errorf("document %s has no reference list to remove entries from", doc.Slug)
	}

	out := &Output{Fragment: plan.Fragment(frag)}
	var edits []document.Edit

	for _, c := range doc.Citations {
		final, ok := plan.Final[c.Number]
		if !ok {
			if plan.IsRemoved(c.Number) {
				log.Warn().
					Str("doc", doc.Slug).
					Int("number", c.Number).
					Msg("Citation targets a removed entry, leaving marker unchanged")
			}
			continue
		}
		if final == c.Number {
			continue
		}
		if !c.NumberSpan.Located() {
			log.Error().
				Str("doc", doc.Slug).
				Int("number", c.Number).
				Int("final", final).
				Msg("Could not locate citation digits, leaving marker unchanged")
			out.unlocated(c.Number)
			continue
		}
		edits = append(edits, document.Edit{Span: c.NumberSpan, Text: strconv.Itoa(final)})
		out.Rewritten++
	}

	for _, e := range doc.Entries {
		if plan.IsRemoved(e.Number) {
			if !e.Closed {
				log.Error().
					Str("doc", doc.Slug).
					Int("number", e.Number).
					Msg("Could not locate entry markup for removal, leaving it in place")
				out.Unremoved = append(out.Unremoved, e.Number)
				continue
			}
			edits = append(edits, document.Edit{Span: document.Span{Start: e.Lead, End: e.Block.End}})
			out.Removed = append(out.Removed, e.Number)
			continue
		}
		final, ok := plan.Final[e.Number]
		if !ok || final == e.Number {
			continue
		}
		if !e.IDSpan.Located() {
			log.Error().
				Str("doc", doc.Slug).
				Int("number", e.Number).
				Int("final", final).
				Msg("Could not locate entry id digits, leaving id unchanged")
			out.unlocated(e.Number)
			continue
		}
		edits = append(edits, document.Edit{Span: e.IDSpan, Text: strconv.Itoa(final)})
	}

	out.HTML = doc.Render(edits)

	log.Info().
		Str("doc", doc.Slug).
		Int("entries", len(plan.Numbers)).
		Int("kept", len(plan.Kept)).
		Int("removed", len(out.Removed)).
		Int("unremoved", len(out.Unremoved)).
		Int("unlocated", len(out.Unlocated)).
		Int("citations_rewritten", out.Rewritten).
		Msg("Renumbered document")

	return out, nil
}

// unlocated records n once.
func (o *Output) unlocated(n int) {
	for _, m := range o.Unlocated {
		if m == n {
			return
		}
	}
	o.Unlocated = append(o.Unlocated, n)
}
