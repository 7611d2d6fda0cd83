package article

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultFallbackTitle is used when the input has no non-blank line.
const DefaultFallbackTitle = "Article"

const (
	dashMarker     = "- "
	indentedMarker = "    - "
)

// Figure captions are recognised but stay ordinary paragraph text.
var figureLabel = regexp.MustCompile(`(?i)^Figure:`)

// Option configures a Parser.
type Option func(*Parser)

// WithHeadings replaces the known heading table.
func WithHeadings(headings []string) Option {
	return func(p *Parser) {
		p.vocab = NewVocabulary(headings)
	}
}

// WithVocabulary installs a prebuilt heading vocabulary.
func WithVocabulary(v *Vocabulary) Option {
	return func(p *Parser) {
		if v != nil {
			p.vocab = v
		}
	}
}

// WithFallbackTitle sets the title used for input without any text.
func WithFallbackTitle(title string) Option {
	return func(p *Parser) {
		if t := strings.TrimSpace(title); t != "" {
			p.fallbackTitle = t
		}
	}
}

// Parser turns plain-text articles into Documents. It holds only
// configuration, so one Parser may be shared between goroutines.
type Parser struct {
	vocab         *Vocabulary
	fallbackTitle string
}

// New returns a Parser using DefaultHeadings unless overridden.
func New(opts ...Option) *Parser {
	p := &Parser{
		vocab:         NewVocabulary(DefaultHeadings),
		fallbackTitle: DefaultFallbackTitle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Vocabulary returns the heading set the parser matches against.
func (p *Parser) Vocabulary() *Vocabulary {
	return p.vocab
}

var defaultParser = New()

// Parse parses raw with the default heading table.
func Parse(raw string) Document {
	return defaultParser.Parse(raw)
}

// Parse builds a Document from raw text. It never fails: malformed markup
// falls through to paragraph text, and input without any known heading
// yields a single section titled after the document.
func (p *Parser) Parse(raw string) Document {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, len(lines))
	for i, l := range lines {
		cleaned[i] = strings.TrimRightFunc(stripMarker(l), isSpace)
	}

	b := &builder{
		doc:     Document{Title: p.fallbackTitle},
		current: -1,
	}
	for _, l := range cleaned {
		if t := trimText(l); t != "" {
			b.doc.Title = t
			break
		}
	}

	for i, l := range cleaned {
		t := trimText(l)
		switch p.classify(lines[i], t) {
		case lineBlank:
			b.boundary()
		case lineHeading:
			b.openSection(t)
		case lineItem:
			b.addItem(trimText(lines[i][len(indentedMarker):]))
		default:
			// Figure captions and any other text continue the paragraph.
			b.addText(t)
		}
	}
	b.flushParagraph()
	b.flushList()

	if len(b.doc.Sections) == 0 {
		s := Section{Title: b.doc.Title, Blocks: []Block{}}
		if text := trimText(strings.Join(b.orphans, " ")); text != "" {
			s.Blocks = append(s.Blocks, Paragraph(text))
		}
		b.doc.Sections = []Section{s}
	}
	return b.doc
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineHeading
	lineItem
	lineFigure
	lineText
)

// classify inspects the trimmed cleaned line for blanks and headings, and
// the raw line for list indentation.
func (p *Parser) classify(raw, trimmed string) lineKind {
	switch {
	case trimmed == "":
		return lineBlank
	case p.vocab.Contains(trimmed):
		return lineHeading
	case strings.HasPrefix(raw, indentedMarker):
		return lineItem
	case figureLabel.MatchString(trimmed):
		return lineFigure
	default:
		return lineText
	}
}

// isSpace also treats a byte order mark as whitespace, so a BOM-prefixed
// file still matches its first heading.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func trimText(s string) string {
	return strings.TrimFunc(s, isSpace)
}

func stripMarker(line string) string {
	if strings.HasPrefix(line, dashMarker) {
		return line[len(dashMarker):]
	}
	if strings.HasPrefix(line, indentedMarker) {
		return line[len(indentedMarker):]
	}
	return line
}

type state int

const (
	stateIdle state = iota
	stateParagraph
	// stateList means a list is open. Plain text may still accumulate in
	// the paragraph buffer while in this state.
	stateList
)

// builder holds the accumulation state of a single Parse call.
type builder struct {
	doc       Document
	current   int
	state     state
	paragraph []string
	list      []string
	// orphans collects paragraph text flushed before any section exists.
	orphans []string
}

func (b *builder) boundary() {
	b.flushParagraph()
	b.flushList()
	b.state = stateIdle
}

func (b *builder) openSection(title string) {
	b.boundary()
	b.doc.Sections = append(b.doc.Sections, Section{Title: title, Blocks: []Block{}})
	b.current = len(b.doc.Sections) - 1
}

func (b *builder) addItem(item string) {
	if b.state != stateList {
		b.flushParagraph()
		b.list = b.list[:0]
		b.state = stateList
	}
	b.list = append(b.list, item)
}

func (b *builder) addText(line string) {
	b.paragraph = append(b.paragraph, line)
	if b.state == stateIdle {
		b.state = stateParagraph
	}
}

func (b *builder) flushParagraph() {
	if len(b.paragraph) == 0 {
		return
	}
	text := trimText(strings.Join(b.paragraph, " "))
	b.paragraph = b.paragraph[:0]
	if b.state == stateParagraph {
		b.state = stateIdle
	}
	if text == "" {
		return
	}
	if b.current < 0 {
		b.orphans = append(b.orphans, text)
		return
	}
	b.appendBlock(Paragraph(text))
}

func (b *builder) flushList() {
	if b.state != stateList {
		return
	}
	if len(b.list) > 0 && b.current >= 0 {
		b.appendBlock(List(b.list))
	}
	b.list = b.list[:0]
	b.state = stateIdle
}

func (b *builder) appendBlock(blk Block) {
	s := &b.doc.Sections[b.current]
	s.Blocks = append(s.Blocks, blk)
}

// IsFallback reports whether doc came from input without any known heading,
// i.e. its only section is the synthesized one.
func (p *Parser) IsFallback(doc Document) bool {
	return len(doc.Sections) == 1 && !p.vocab.Contains(doc.Sections[0].Title)
}
