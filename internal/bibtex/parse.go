// Package bibtex parses the canonical BibTeX bibliography into keyed field records.
package bibtex

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Entry is one parsed @type{key, ...} block.
type Entry struct {
	Key    string
	Type   string            // Raw entry type, lowercased (article, inproceedings, ...)
	Fields map[string]string // Field name (lowercased) -> trimmed value
	Line   int               // Line of the @ opening (1-indexed)
}

// Field returns a field value, or "" when absent.
func (e Entry) Field(name string) string {
	return e.Fields[name]
}

// ParseError describes an entry that was skipped or only partially parsed.
type ParseError struct {
	Line    int    // Line of the entry opening (1-indexed)
	Message string // Description of the problem
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Bibliography holds entries in file order.
type Bibliography struct {
	Entries []Entry
	Errors  []ParseError

	byKey map[string]int
}

// Lookup returns the entry with the given key.
func (b *Bibliography) Lookup(key string) (Entry, bool) {
	if b == nil {
		return Entry{}, false
	}
	i, ok := b.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return b.Entries[i], true
}

// Len returns the number of distinct keys.
func (b *Bibliography) Len() int {
	return len(b.Entries)
}

// add stores an entry. A repeated key replaces the earlier entry's fields
// but keeps its position.
func (b *Bibliography) add(e Entry) {
	if i, ok := b.byKey[e.Key]; ok {
		b.Entries[i] = e
		return
	}
	b.byKey[e.Key] = len(b.Entries)
	b.Entries = append(b.Entries, e)
}

var (
	entryStartRegex = regexp.MustCompile(`@(\w+)\s*\{`)
	fieldNameRegex  = regexp.MustCompile(`^(\w+)\s*=\s*`)
	bareValueRegex  = regexp.MustCompile(`^[^\s,}]+`)
)

// ParseFile reads and parses a BibTeX file.
func ParseFile(path string) (*Bibliography, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bibliography: %w", err)
	}
	return Parse(string(data)), nil
}

// Parse parses BibTeX text. It never fails: malformed entries are skipped,
// recorded in Errors, and scanning resumes after them.
func Parse(text string) *Bibliography {
	bib := &Bibliography{byKey: make(map[string]int)}

	pos := 0
	for pos < len(text) {
		loc := entryStartRegex.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		openStart := pos + loc[0]
		openEnd := pos + loc[1]
		entryType := strings.ToLower(text[pos+loc[2] : pos+loc[3]])
		line := 1 + strings.Count(text[:openStart], "\n")

		if skipTypes[entryType] {
			pos = skipBlock(text, openEnd)
			continue
		}

		// The key runs to the first comma; it must come before the next entry.
		comma := strings.IndexByte(text[openEnd:], ',')
		next := entryStartRegex.FindStringIndex(text[openEnd:])
		if comma == -1 || (next != nil && next[0] < comma) {
			bib.Errors = append(bib.Errors, ParseError{Line: line, Message: fmt.Sprintf("@%s entry has no key terminator, skipped", entryType)})
			pos = openEnd
			continue
		}
		comma += openEnd
		key := strings.TrimSpace(text[openEnd:comma])
		if key == "" || strings.ContainsAny(key, "{}") {
			bib.Errors = append(bib.Errors, ParseError{Line: line, Message: fmt.Sprintf("@%s entry has invalid key %q, skipped", entryType, key)})
			pos = openEnd
			continue
		}

		// Find the matching close brace.
		depth := 1
		i := comma + 1
		for i < len(text) && depth > 0 {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
			}
			i++
		}
		bodyEnd := i
		if depth == 0 {
			bodyEnd = i - 1
		} else {
			bib.Errors = append(bib.Errors, ParseError{Line: line, Message: fmt.Sprintf("entry %q is not closed", key)})
		}

		bib.add(Entry{
			Key:    key,
			Type:   entryType,
			Fields: parseFields(text[comma+1 : bodyEnd]),
			Line:   line,
		})
		pos = i
	}

	return bib
}

// skipTypes are BibTeX directives that carry no keyed entry.
var skipTypes = map[string]bool{"comment": true, "preamble": true, "string": true}

// skipBlock returns the offset just past the brace that closes a block
// opened immediately before start.
func skipBlock(text string, start int) int {
	depth := 1
	i := start
	for i < len(text) && depth > 0 {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		i++
	}
	return i
}

// parseFields extracts name = value pairs from an entry body.
func parseFields(body string) map[string]string {
	fields := make(map[string]string)

	i := 0
	for i < len(body) {
		for i < len(body) && strings.IndexByte(" \t\n\r,", body[i]) >= 0 {
			i++
		}
		if i >= len(body) {
			break
		}

		m := fieldNameRegex.FindStringSubmatch(body[i:])
		if m == nil {
			i++
			continue
		}
		name := strings.ToLower(m[1])
		i += len(m[0])
		if i >= len(body) {
			break
		}

		var value string
		switch body[i] {
		case '{':
			depth := 1
			start := i + 1
			i++
			for i < len(body) && depth > 0 {
				switch body[i] {
				case '{':
					depth++
				case '}':
					depth--
				}
				i++
			}
			end := i
			if depth == 0 {
				end = i - 1
			}
			value = body[start:end]
		case '"':
			start := i + 1
			i++
			for i < len(body) && body[i] != '"' {
				i++
			}
			value = body[start:i]
			i++
		default:
			bare := bareValueRegex.FindString(body[i:])
			if bare == "" {
				i++
				continue
			}
			value = bare
			i += len(bare)
		}
		fields[name] = strings.TrimSpace(value)
	}

	return fields
}
