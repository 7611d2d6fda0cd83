package generator

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"textdoc/internal/article"
)

// HTMLRenderer converts documents to sanitized HTML fragments. It holds no
// per-call state and is safe for concurrent use.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render renders doc through its Markdown form.
func (r *HTMLRenderer) Render(doc article.Document) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(RenderMarkdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

var defaultHTML = NewHTMLRenderer()

// RenderHTML renders doc with the default renderer.
func RenderHTML(doc article.Document) (string, error) {
	return defaultHTML.Render(doc)
}
