// Package reference defines the core domain types for the bibliographic stores.
package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// RecordType is the simplified classification of a bibliographic record.
type RecordType string

const (
	TypeJournal     RecordType = "journal"
	TypeConference  RecordType = "conference"
	TypeBook        RecordType = "book"
	TypeBookChapter RecordType = "book-chapter"
	TypeThesis      RecordType = "thesis"
	TypeReport      RecordType = "report"
	TypeMisc        RecordType = "misc"
	TypePreprint    RecordType = "preprint"
)

// AuthoritativeRecordFields lists the record fields owned by the builder.
// Every other field belongs to an external collaborator and is carried over
// unchanged across rebuilds.
var AuthoritativeRecordFields = []string{
	"title", "authors", "year", "venue", "venueShort", "url", "doi", "type",
}

// Record represents one bibliographic work, stored once under its canonical key.
type Record struct {
	// Builder-owned fields
	Title      string
	Authors    []string // Ordered author keys
	Year       int      // 0 if unknown
	Venue      string
	VenueShort string
	URL        string
	DOI        string
	Type       RecordType

	// Enrichment holds every non-builder field verbatim (screenshot and
	// anything an external collaborator added).
	Enrichment map[string]json.RawMessage
}

// NewRecordEnrichment returns the enrichment fields of a freshly created record.
func NewRecordEnrichment() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"screenshot": json.RawMessage("null"),
	}
}

// Screenshot returns the opaque screenshot pointer, or nil when unset.
func (r Record) Screenshot() json.RawMessage {
	raw, ok := r.Enrichment["screenshot"]
	if !ok || string(raw) == "null" {
		return nil
	}
	return raw
}

// MarshalJSON writes builder fields followed by enrichment fields.
// Empty optional strings and a zero year are written as null.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Enrichment)+len(AuthoritativeRecordFields))
	for k, v := range r.Enrichment {
		out[k] = v
	}
	authors := r.Authors
	if authors == nil {
		authors = []string{}
	}
	out["title"] = r.Title
	out["authors"] = authors
	out["year"] = nullableInt(r.Year)
	out["venue"] = nullableString(r.Venue)
	out["venueShort"] = nullableString(r.VenueShort)
	out["url"] = nullableString(r.URL)
	out["doi"] = nullableString(r.DOI)
	out["type"] = string(r.Type)
	return marshal(out)
}

// UnmarshalJSON splits a stored record into builder fields and enrichment.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{Enrichment: make(map[string]json.RawMessage)}
	for k, v := range raw {
		var err error
		switch k {
		case "title":
			r.Title, err = decodeString(v)
		case "authors":
			if string(v) != "null" {
				err = json.Unmarshal(v, &r.Authors)
			}
		case "year":
			r.Year, err = decodeYear(v)
		case "venue":
			r.Venue, err = decodeString(v)
		case "venueShort":
			r.VenueShort, err = decodeString(v)
		case "url":
			r.URL, err = decodeString(v)
		case "doi":
			r.DOI, err = decodeString(v)
		case "type":
			var t string
			t, err = decodeString(v)
			r.Type = RecordType(t)
		default:
			r.Enrichment[k] = v
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func decodeString(raw json.RawMessage) (string, error) {
	if string(raw) == "null" {
		return "", nil
	}
	var s string
	err := json.Unmarshal(raw, &s)
	return s, err
}

// decodeYear accepts a number, a numeric string, or null.
func decodeYear(raw json.RawMessage) (int, error) {
	if string(raw) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("cannot decode year %s", string(raw))
	}
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// marshal encodes v without escaping &, < and >, which are common in
// titles and URLs.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// sortedKeys returns map keys in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
