package reference

import (
	"encoding/json"
	"fmt"
)

// Author represents one person or organization credited on a record.
// Only DisplayName is builder-owned; affiliation, headshot, links and any
// other field are enrichment written by external collaborators.
type Author struct {
	DisplayName string
	Enrichment  map[string]json.RawMessage
}

// NewAuthorEnrichment returns the enrichment fields of a freshly created author.
func NewAuthorEnrichment() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"affiliation": json.RawMessage("null"),
		"headshot":    json.RawMessage("null"),
		"links":       json.RawMessage("{}"),
	}
}

// Affiliation returns the enriched affiliation, or "" when unset.
func (a Author) Affiliation() string {
	s, _ := decodeString(a.rawOrNull("affiliation"))
	return s
}

// Headshot returns the enriched headshot path, or "" when unset.
func (a Author) Headshot() string {
	s, _ := decodeString(a.rawOrNull("headshot"))
	return s
}

// Links returns the enriched profile links (may be empty).
func (a Author) Links() map[string]string {
	links := map[string]string{}
	raw, ok := a.Enrichment["links"]
	if !ok {
		return links
	}
	_ = json.Unmarshal(raw, &links)
	return links
}

func (a Author) rawOrNull(field string) json.RawMessage {
	if raw, ok := a.Enrichment[field]; ok {
		return raw
	}
	return json.RawMessage("null")
}

// MarshalJSON writes displayName followed by enrichment fields.
func (a Author) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Enrichment)+1)
	for k, v := range a.Enrichment {
		out[k] = v
	}
	out["displayName"] = a.DisplayName
	return marshal(out)
}

// UnmarshalJSON splits a stored author into displayName and enrichment.
func (a *Author) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Author{Enrichment: make(map[string]json.RawMessage)}
	for k, v := range raw {
		if k != "displayName" {
			a.Enrichment[k] = v
			continue
		}
		name, err := decodeString(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		a.DisplayName = name
	}
	return nil
}
