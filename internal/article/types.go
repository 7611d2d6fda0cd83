package article

// BlockKind tags the variant held by a Block.
type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindList      BlockKind = "list"
	// KindHeading is never produced by the parser. Renderers should still
	// handle it.
	KindHeading BlockKind = "heading"
)

// Block is one paragraph, list or heading inside a section.
type Block struct {
	Kind  BlockKind `json:"type"`
	Text  string    `json:"text,omitempty"`
	Items []string  `json:"items,omitempty"`
}

// Paragraph builds a paragraph block.
func Paragraph(text string) Block {
	return Block{Kind: KindParagraph, Text: text}
}

// List builds a list block. The items slice is copied.
func List(items []string) Block {
	return Block{Kind: KindList, Items: append([]string(nil), items...)}
}

// Empty reports whether the block carries no content.
func (b Block) Empty() bool {
	switch b.Kind {
	case KindList:
		return len(b.Items) == 0
	default:
		return trimText(b.Text) == ""
	}
}

// Section is a titled group of blocks in reading order.
type Section struct {
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// Document is the parsed form of an article.
type Document struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// IsEmpty reports whether no section holds any block. Callers use it to
// detect missing or blank source text.
func (d Document) IsEmpty() bool {
	for _, s := range d.Sections {
		if len(s.Blocks) > 0 {
			return false
		}
	}
	return true
}

// Stats summarises the shape of a document.
type Stats struct {
	Sections   int `json:"sections"`
	Paragraphs int `json:"paragraphs"`
	Lists      int `json:"lists"`
	ListItems  int `json:"list_items"`
}

func (d Document) Stats() Stats {
	st := Stats{Sections: len(d.Sections)}
	for _, s := range d.Sections {
		for _, b := range s.Blocks {
			switch b.Kind {
			case KindParagraph:
				st.Paragraphs++
			case KindList:
				st.Lists++
				st.ListItems += len(b.Items)
			}
		}
	}
	return st
}
