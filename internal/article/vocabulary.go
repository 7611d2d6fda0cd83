package article

// DefaultHeadings is the heading table of the bundled LLM article: the
// document title, six content headings, the conclusion and the sources list.
var DefaultHeadings = []string{
	"Understanding LLMs and Multimodal AI: Generating Accurate Responses to Prompts",
	"Processing Text Prompts with Transformers (Tokenization, Embeddings & Attention)",
	"Training LLMs: From Massive Datasets to Fine-Tuning and RLHF",
	"How LLMs Achieve Accuracy and Relevance in Responses",
	"From Unimodal to Multimodal: Integrating Text, Images, Audio, and More",
	"Generative AI Across Modalities: Examples",
	"Conclusion",
	"Sources:",
}

// Vocabulary is a closed, ordered set of heading strings. Matching is exact
// and case-sensitive.
type Vocabulary struct {
	ordered []string
	index   map[string]struct{}
}

// NewVocabulary builds a vocabulary from headings. Entries are trimmed; blank
// entries and duplicates are dropped, first occurrence wins.
func NewVocabulary(headings []string) *Vocabulary {
	v := &Vocabulary{index: make(map[string]struct{}, len(headings))}
	for _, h := range headings {
		h = trimText(h)
		if h == "" {
			continue
		}
		if _, ok := v.index[h]; ok {
			continue
		}
		v.index[h] = struct{}{}
		v.ordered = append(v.ordered, h)
	}
	return v
}

// Contains reports whether line is one of the known headings.
func (v *Vocabulary) Contains(line string) bool {
	if v == nil {
		return false
	}
	_, ok := v.index[line]
	return ok
}

// Headings returns a copy of the headings in insertion order.
func (v *Vocabulary) Headings() []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v.ordered...)
}

func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.ordered)
}
