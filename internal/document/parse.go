package document

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	citationHrefRegex = regexp.MustCompile(`^#ref-(\d+)`)
	entryIDRegex      = regexp.MustCompile(`^ref-(\d+)`)

	// Locate the digits inside a raw start tag. Attribute names are
	// matched after whitespace so data-id or xhref do not count. The "#"
	// may be written as a character reference.
	rawHrefRegex = regexp.MustCompile(`(?is)\shref\s*=\s*["']?\s*(?:#|&#0*35;|&#x0*23;|&num;)ref-(\d+)`)
	rawIDRegex   = regexp.MustCompile(`(?is)\sid\s*=\s*["']?\s*ref-(\d+)`)
)

// fieldClasses are the span classes carrying structured entry text.
var fieldClasses = []string{"authors", "title", "venue"}

// entryBuilder accumulates one reference-list entry while tokenizing.
type entryBuilder struct {
	entry   Entry
	liDepth int

	field     string // current field span class, "" outside one
	spanDepth int
	fieldBuf  strings.Builder

	allText strings.Builder
	nonSpan strings.Builder
	authors string
	title   string
	venue   string
}

// Parse tokenizes an HTML document once, collecting citation markers from
// the whole document and entries from the first references section.
func Parse(slug string, src []byte) *Document {
	doc := &Document{Slug: slug, Source: src}
	p := &parser{doc: doc}

	z := html.NewTokenizer(bytes.NewReader(src))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		// TagName and TagAttr lowercase the buffer in place, so take the
		// raw bytes first.
		raw := append([]byte(nil), z.Raw()...)
		start := offset
		offset += len(raw)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, attrs := readTag(z)
			p.startTag(name, attrs, raw, start, offset, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			name, _ := z.TagName()
			p.endTag(string(name), start, offset)
		case html.TextToken:
			p.text(string(z.Text()))
		}
	}
	p.finishOpen()
	return doc
}

// readTag returns the tag name and its attributes. A repeated attribute
// keeps its first value, as browsers do.
func readTag(z *html.Tokenizer) (string, map[string]string) {
	name, hasAttr := z.TagName()
	attrs := make(map[string]string)
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		k := string(key)
		if _, ok := attrs[k]; !ok {
			attrs[k] = string(val)
		}
	}
	return string(name), attrs
}

type parser struct {
	doc *Document

	inSection    bool
	sectionDepth int
	sectionDone  bool

	olDepth  int // depth inside the first <ol>, 0 outside it
	listDone bool

	current *entryBuilder
}

func (p *parser) startTag(name string, attrs map[string]string, raw []byte, start, end int, selfClosing bool) {
	if name == "a" {
		p.citation(attrs["href"], raw, start)
	}

	if !p.inSection {
		if name == "section" && !p.sectionDone && hasClass(attrs["class"], "references") {
			p.inSection = true
			p.sectionDepth = 1
			p.doc.HasReferences = true
		}
		return
	}

	switch name {
	case "section":
		if !selfClosing {
			p.sectionDepth++
		}
		return
	case "ol":
		if p.olDepth > 0 {
			p.olDepth++
		} else if !p.listDone && !selfClosing {
			p.olDepth = 1
		}
		return
	}

	if p.olDepth == 0 {
		return
	}

	if name == "li" {
		m := entryIDRegex.FindStringSubmatch(attrs["id"])
		startsEntry := m != nil && (p.current == nil || p.current.liDepth == 1)
		if startsEntry {
			// A sibling <li> opening before the previous one closed leaves
			// that entry without a locatable block.
			p.finishOpen()
			n, _ := strconv.Atoi(m[1])
			p.current = &entryBuilder{liDepth: 1}
			p.current.entry.Number = n
			p.current.entry.Block.Start = start
			p.current.entry.Lead = leadingSpace(p.doc.Source, start)
			if loc := rawIDRegex.FindSubmatchIndex(raw); loc != nil {
				p.current.entry.IDSpan = Span{Start: start + loc[2], End: start + loc[3]}
			}
			return
		}
		if p.current != nil && !selfClosing {
			p.current.liDepth++
		}
		return
	}

	cur := p.current
	if cur == nil {
		return
	}
	switch name {
	case "span":
		if selfClosing {
			return
		}
		if cur.field != "" {
			cur.spanDepth++
			return
		}
		for _, cls := range fieldClasses {
			if hasClass(attrs["class"], cls) {
				cur.field = cls
				cur.spanDepth = 1
				cur.fieldBuf.Reset()
				break
			}
		}
	case "a":
		href := strings.TrimSpace(attrs["href"])
		if cur.entry.URL == "" && isExternal(href) {
			cur.entry.URL = href
		}
	}
}

func (p *parser) endTag(name string, start, end int) {
	if !p.inSection {
		return
	}

	switch name {
	case "section":
		p.sectionDepth--
		if p.sectionDepth <= 0 {
			p.finishOpen()
			p.inSection = false
			p.sectionDone = true
			p.olDepth = 0
		}
		return
	case "ol":
		if p.olDepth > 0 {
			p.olDepth--
			if p.olDepth == 0 {
				p.finishOpen()
				p.listDone = true
			}
		}
		return
	}

	cur := p.current
	if cur == nil {
		return
	}
	switch name {
	case "li":
		cur.liDepth--
		if cur.liDepth == 0 {
			cur.entry.Block.End = end
			cur.entry.Closed = true
			p.finish()
		}
	case "span":
		if cur.field == "" {
			return
		}
		cur.spanDepth--
		if cur.spanDepth == 0 {
			text := collapse(cur.fieldBuf.String())
			switch cur.field {
			case "authors":
				cur.authors = text
			case "title":
				cur.title = text
			case "venue":
				cur.venue = text
			}
			cur.field = ""
		}
	}
}

func (p *parser) text(s string) {
	cur := p.current
	if cur == nil {
		return
	}
	cur.allText.WriteString(s)
	if cur.field != "" {
		cur.fieldBuf.WriteString(s)
		return
	}
	// Keep chunks apart so "(2020)" and "1999" in separate nodes stay
	// separate tokens.
	cur.nonSpan.WriteString(s)
	cur.nonSpan.WriteByte(' ')
}

func (p *parser) citation(href string, raw []byte, start int) {
	m := citationHrefRegex.FindStringSubmatch(strings.TrimSpace(href))
	if m == nil {
		return
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	c := Citation{Number: n}
	if loc := rawHrefRegex.FindSubmatchIndex(raw); loc != nil {
		c.NumberSpan = Span{Start: start + loc[2], End: start + loc[3]}
	}
	p.doc.Citations = append(p.doc.Citations, c)
}

// finishOpen records the current entry, if any, as unclosed.
func (p *parser) finishOpen() {
	if p.current == nil {
		return
	}
	p.current.entry.Block = Span{}
	p.current.entry.Closed = false
	p.finish()
}

func (p *parser) finish() {
	cur := p.current
	p.current = nil

	if cur.field != "" {
		// Unclosed field span: keep what was read.
		text := collapse(cur.fieldBuf.String())
		switch cur.field {
		case "authors":
			cur.authors = text
		case "title":
			cur.title = text
		case "venue":
			cur.venue = text
		}
	}

	e := cur.entry
	e.Authors = cur.authors
	e.Title = cur.title
	e.Venue = cur.venue
	e.AllText = collapse(cur.allText.String())
	e.Year = resolveYear(cur.nonSpan.String(), e.Authors, e.Title, e.Venue)
	p.doc.Entries = append(p.doc.Entries, e)
}

// hasClass reports whether a class attribute lists cls.
func hasClass(attr, cls string) bool {
	for _, c := range strings.Fields(attr) {
		if c == cls {
			return true
		}
	}
	return false
}

func isExternal(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// leadingSpace returns the start of the whitespace run ending at pos.
func leadingSpace(src []byte, pos int) int {
	for pos > 0 {
		switch src[pos-1] {
		case ' ', '\t', '\n', '\r', '\f':
			pos--
		default:
			return pos
		}
	}
	return pos
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
