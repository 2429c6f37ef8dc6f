// Package audit checks the stores and documents for referential integrity.
// It re-parses documents itself and never trusts what the builder reported.
package audit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/matsen/citemap/internal/document"
	"github.com/matsen/citemap/internal/reference"
	"github.com/matsen/citemap/internal/storage"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding codes.
const (
	CodeDanglingCitation = "dangling-citation"
	CodeOrphanedEntry    = "orphaned-entry"
	CodeNumberingGap     = "numbering-gap"
	CodeMissingFromMap   = "missing-from-map"
	CodeMissingFromHTML  = "missing-from-html"
	CodeMissingRecord    = "missing-record"
	CodeURLMismatch      = "url-mismatch"
	CodeUnknownDocument  = "unknown-document"
	CodeEmptyTitle       = "empty-title"
	CodeMissingYear      = "missing-year"
	CodeMissingAuthors   = "missing-authors"
	CodeMissingURL       = "missing-url"
	CodeEmptyDisplayName = "empty-display-name"
	CodeOrphanedRecord   = "orphaned-record"
	CodeOrphanedAuthor   = "orphaned-author"
	CodeSharedEmptyTitle = "shared-empty-title"
)

// Finding is one audit result.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Document string   `json:"document,omitempty"`
	Number   int      `json:"number,omitempty"`
	Key      string   `json:"key,omitempty"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", strings.ToUpper(string(f.Severity)), f.Message)
}

// DocumentSummary counts what was found in one document.
type DocumentSummary struct {
	Slug      string `json:"slug"`
	Cited     int    `json:"cited"`   // Unique numbers cited in text
	Entries   int    `json:"entries"` // Unique reference-list numbers
	Mapped    int    `json:"mapped"`  // Chapter map numbers
	Reference bool   `json:"has_references"`
}

// Status is the overall outcome of an audit.
type Status string

const (
	StatusClean    Status = "clean"
	StatusWarnings Status = "warnings"
	StatusErrors   Status = "errors"
)

// Report collects findings in the order they were produced.
type Report struct {
	Documents []DocumentSummary `json:"documents"`
	Records   int               `json:"records"`
	Authors   int               `json:"authors"`
	Errors    []Finding         `json:"errors"`
	Warnings  []Finding         `json:"warnings"`
	Info      []Finding         `json:"info"`
}

// Status reports errors if any error was found, warnings if only
// warnings were found, and clean otherwise. Info findings never affect it.
func (r *Report) Status() Status {
	switch {
	case len(r.Errors) > 0:
		return StatusErrors
	case len(r.Warnings) > 0:
		return StatusWarnings
	default:
		return StatusClean
	}
}

func (r *Report) add(f Finding) {
	switch f.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, f)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, f)
	default:
		r.Info = append(r.Info, f)
	}
}

// Run audits docs, in the given order, against the stores.
func Run(docs []*document.Document, s *storage.Stores) *Report {
	r := &Report{
		Records:  len(s.Records),
		Authors:  len(s.Authors),
		Errors:   []Finding{},
		Warnings: []Finding{},
		Info:     []Finding{},
	}

	known := make(map[string]bool, len(docs))
	for _, doc := range docs {
		known[doc.Slug] = true
		checkDocument(r, doc, s.ChapterMap[doc.Slug], s.Records)
	}
	for _, slug := range s.ChapterMap.Slugs() {
		if !known[slug] {
			r.add(Finding{
				Severity: SeverityWarning,
				Code:     CodeUnknownDocument,
				Document: slug,
				Message:  fmt.Sprintf("chapter map has entries for %q, which is not a configured document", slug),
			})
		}
	}

	checkRecords(r, s)
	checkAuthors(r, s)
	checkShared(r, docs, s)
	return r
}

func checkDocument(r *Report, doc *document.Document, frag reference.Fragment, records map[string]reference.Record) {
	counts := doc.CitationCounts()
	cited := sortedInts(counts)
	entries := doc.EntryNumbers()
	mapped := frag.Numbers()

	r.Documents = append(r.Documents, DocumentSummary{
		Slug:      doc.Slug,
		Cited:     len(cited),
		Entries:   len(entries),
		Mapped:    len(mapped),
		Reference: doc.HasReferences,
	})

	hasEntry := toSet(entries)
	for _, n := range cited {
		if !hasEntry[n] {
			r.add(Finding{
				Severity: SeverityError, Code: CodeDanglingCitation, Document: doc.Slug, Number: n,
				Message: fmt.Sprintf("%s: citation #ref-%d has no reference-list entry", doc.Slug, n),
			})
		}
	}
	for _, n := range entries {
		if counts[n] == 0 {
			r.add(Finding{
				Severity: SeverityWarning, Code: CodeOrphanedEntry, Document: doc.Slug, Number: n,
				Message: fmt.Sprintf("%s: ref-%d is listed but never cited", doc.Slug, n),
			})
		}
	}
	if len(entries) > 0 {
		for n := 1; n < entries[len(entries)-1]; n++ {
			if !hasEntry[n] {
				r.add(Finding{
					Severity: SeverityWarning, Code: CodeNumberingGap, Document: doc.Slug, Number: n,
					Message: fmt.Sprintf("%s: ref-%d is missing from the reference list", doc.Slug, n),
				})
			}
		}
	}

	for _, n := range entries {
		if _, ok := frag[n]; !ok {
			r.add(Finding{
				Severity: SeverityError, Code: CodeMissingFromMap, Document: doc.Slug, Number: n,
				Message: fmt.Sprintf("%s: ref-%d is in the document but not in the chapter map", doc.Slug, n),
			})
		}
	}
	for _, n := range mapped {
		if !hasEntry[n] {
			r.add(Finding{
				Severity: SeverityError, Code: CodeMissingFromHTML, Document: doc.Slug, Number: n, Key: frag[n],
				Message: fmt.Sprintf("%s: ref-%d is in the chapter map but has no reference-list entry", doc.Slug, n),
			})
		}
	}

	for _, n := range mapped {
		key := frag[n]
		rec, ok := records[key]
		if !ok {
			r.add(Finding{
				Severity: SeverityError, Code: CodeMissingRecord, Document: doc.Slug, Number: n, Key: key,
				Message: fmt.Sprintf("%s: ref-%d maps to %q, which has no record", doc.Slug, n, key),
			})
			continue
		}
		e, ok := doc.Entry(n)
		if !ok || e.URL == "" || rec.URL == "" {
			continue
		}
		if !urlsAgree(e.URL, rec.URL) {
			r.add(Finding{
				Severity: SeverityWarning, Code: CodeURLMismatch, Document: doc.Slug, Number: n, Key: key,
				Message: fmt.Sprintf("%s/ref-%d: document links %s but record has %s",
					doc.Slug, n, truncate(e.URL, 60), truncate(rec.URL, 60)),
			})
		}
	}
}

func checkRecords(r *Report, s *storage.Stores) {
	referenced := make(map[string]bool)
	for _, frag := range s.ChapterMap {
		for _, key := range frag {
			referenced[key] = true
		}
	}

	keys := sortedKeys(s.Records)
	for _, key := range keys {
		rec := s.Records[key]
		if strings.TrimSpace(rec.Title) == "" {
			r.add(Finding{Severity: SeverityError, Code: CodeEmptyTitle, Key: key,
				Message: fmt.Sprintf("record %q has no title", key)})
		}
		if rec.Year == 0 {
			r.add(Finding{Severity: SeverityWarning, Code: CodeMissingYear, Key: key,
				Message: fmt.Sprintf("record %q has no year", key)})
		}
		if len(rec.Authors) == 0 {
			r.add(Finding{Severity: SeverityWarning, Code: CodeMissingAuthors, Key: key,
				Message: fmt.Sprintf("record %q has no authors", key)})
		}
		if rec.URL == "" {
			r.add(Finding{Severity: SeverityWarning, Code: CodeMissingURL, Key: key,
				Message: fmt.Sprintf("record %q has no URL", key)})
		}
	}
	for _, key := range keys {
		if !referenced[key] {
			r.add(Finding{Severity: SeverityWarning, Code: CodeOrphanedRecord, Key: key,
				Message: fmt.Sprintf("record %q is not referenced by any chapter map", key)})
		}
	}
}

func checkAuthors(r *Report, s *storage.Stores) {
	referenced := make(map[string]bool)
	for _, rec := range s.Records {
		for _, a := range rec.Authors {
			referenced[a] = true
		}
	}

	keys := sortedKeys(s.Authors)
	for _, key := range keys {
		if strings.TrimSpace(s.Authors[key].DisplayName) == "" {
			r.add(Finding{Severity: SeverityError, Code: CodeEmptyDisplayName, Key: key,
				Message: fmt.Sprintf("author %q has no display name", key)})
		}
	}
	for _, key := range keys {
		if !referenced[key] {
			r.add(Finding{Severity: SeverityInfo, Code: CodeOrphanedAuthor, Key: key,
				Message: fmt.Sprintf("author %q is not referenced by any record", key)})
		}
	}
}

// checkShared flags records cited from more than one document that would
// render without a title.
func checkShared(r *Report, docs []*document.Document, s *storage.Stores) {
	order := make([]string, 0, len(docs))
	for _, d := range docs {
		order = append(order, d.Slug)
	}
	locs := s.ChapterMap.Locations(order)

	for _, key := range sortedKeys(locs) {
		where := locs[key]
		if distinctDocuments(where) < 2 {
			continue
		}
		if rec, ok := s.Records[key]; ok && strings.TrimSpace(rec.Title) != "" {
			continue
		}
		names := make([]string, len(where))
		for i, l := range where {
			names[i] = l.String()
		}
		r.add(Finding{Severity: SeverityWarning, Code: CodeSharedEmptyTitle, Key: key,
			Message: fmt.Sprintf("record %q is shared by %s but has no title", key, strings.Join(names, ", "))})
	}
}

var urlPrefixRegex = regexp.MustCompile(`^https?://(www\.)?`)

// urlsAgree compares two links loosely: scheme, www and a trailing slash
// are ignored, and containment either way counts as agreement.
func urlsAgree(a, b string) bool {
	na := strings.ToLower(strings.TrimRight(urlPrefixRegex.ReplaceAllString(a, ""), "/"))
	nb := strings.ToLower(strings.TrimRight(urlPrefixRegex.ReplaceAllString(b, ""), "/"))
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

func distinctDocuments(locs []reference.Location) int {
	seen := make(map[string]bool)
	for _, l := range locs {
		seen[l.Slug] = true
	}
	return len(seen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func toSet(nums []int) map[int]bool {
	m := make(map[int]bool, len(nums))
	for _, n := range nums {
		m[n] = true
	}
	return m
}

func sortedInts(m map[int]int) []int {
	out := make([]int, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
