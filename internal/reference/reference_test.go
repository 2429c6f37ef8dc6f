package reference

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestRecord_UnmarshalKeepsUnknownFields(t *testing.T) {
	data := `{
		"title": "Foo & Bar",
		"authors": ["smith_john"],
		"year": "2020",
		"venue": null,
		"url": "https://example.com/?a=1&b=2",
		"type": "journal",
		"screenshot": {"path": "shots/foo.png", "taken": "2025-01-02"},
		"liveness": 200
	}`

	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Title != "Foo & Bar" || r.Year != 2020 || r.Venue != "" || r.Type != TypeJournal {
		t.Errorf("record = %+v", r)
	}
	if len(r.Enrichment) != 2 {
		t.Errorf("Enrichment = %v, want screenshot and liveness", r.Enrichment)
	}
	if r.Screenshot() == nil {
		t.Error("Screenshot() = nil, want stored value")
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(out)
	for _, want := range []string{`"liveness":200`, `"year":2020`, `"venue":null`, `"doi":null`, `"title":"Foo & Bar"`, `a=1&b=2`} {
		if !strings.Contains(s, want) {
			t.Errorf("Marshal() missing %s in %s", want, s)
		}
	}
}

func TestRecord_MarshalEmpty(t *testing.T) {
	out, err := json.Marshal(Record{Type: TypeMisc, Enrichment: NewRecordEnrichment()})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"authors":[],"doi":null,"screenshot":null,"title":"","type":"misc","url":null,"venue":null,"venueShort":null,"year":null}`
	if string(out) != want {
		t.Errorf("Marshal() = %s\nwant %s", out, want)
	}
}

func TestRecord_BadYear(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"year": "soon"}`), &r); err == nil {
		t.Error("Unmarshal() should reject a non-numeric year")
	}
}

func TestAuthor_RoundTrip(t *testing.T) {
	data := `{"displayName":"Jane Doe","affiliation":"UW","headshot":null,"links":{"web":"https://doe.example"},"orcid":"0000"}`

	var a Author
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if a.DisplayName != "Jane Doe" || a.Affiliation() != "UW" || a.Headshot() != "" {
		t.Errorf("author = %+v", a)
	}
	if a.Links()["web"] != "https://doe.example" {
		t.Errorf("Links() = %v", a.Links())
	}

	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-decoding: %v", err)
	}
	if back["orcid"] != "0000" || back["displayName"] != "Jane Doe" {
		t.Errorf("round trip = %v", back)
	}
}

func TestFragment_JSON(t *testing.T) {
	f := Fragment{10: "c", 2: "b", 1: "a"}
	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"1":"a","2":"b","10":"c"}` {
		t.Errorf("Marshal() = %s, want numeric key order", out)
	}

	var back Fragment
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(back, f) {
		t.Errorf("round trip = %v", back)
	}

	for _, bad := range []string{`{"0":"a"}`, `{"x":"a"}`, `{"-3":"a"}`} {
		if err := json.Unmarshal([]byte(bad), &back); err == nil {
			t.Errorf("Unmarshal(%s) should fail", bad)
		}
	}
}

func TestChapterMap_Locations(t *testing.T) {
	m := ChapterMap{
		"appendix": {1: "shared"},
		"index":    {2: "shared", 1: "solo"},
		"chapter2": {5: "shared"},
	}

	locs := m.Locations([]string{"index", "chapter2"})
	want := []Location{{"index", 2}, {"chapter2", 5}, {"appendix", 1}}
	if !reflect.DeepEqual(locs["shared"], want) {
		t.Errorf("Locations()[shared] = %v, want %v", locs["shared"], want)
	}
	if len(locs["solo"]) != 1 || locs["solo"][0].String() != "index/ref-1" {
		t.Errorf("Locations()[solo] = %v", locs["solo"])
	}
}
