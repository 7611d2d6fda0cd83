package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textdoc/internal/article"
)

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML(sampleDocument())
	require.NoError(t, err)

	assert.Contains(t, out, "Understanding LLMs</h1>")
	assert.Contains(t, out, "Conclusion</h2>")
	assert.Contains(t, out, "<p>Models predict tokens.</p>")
	assert.Contains(t, out, "<li>tokenization</li>")
	assert.Contains(t, out, "<li>Vaswani et al.</li>")
}

func TestRenderHTML_SanitizesRawHTML(t *testing.T) {
	doc := article.Document{
		Title: "T",
		Sections: []article.Section{{
			Title:  "S",
			Blocks: []article.Block{article.Paragraph(`hello <script>alert(1)</script> <a href="javascript:x()">x</a>`)},
		}},
	}

	out, err := RenderHTML(doc)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<a ")
	assert.Contains(t, out, "hello &lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestRenderHTML_KeepsLiteralProse(t *testing.T) {
	doc := article.Document{
		Title: "T",
		Sections: []article.Section{{
			Title: "S",
			Blocks: []article.Block{
				article.Paragraph("The model emits a <think> token first."),
				article.Paragraph("Compute 2*3*4 with snake_case and [brackets] & `ticks`."),
				article.List([]string{"* starred", "a <b>bold</b> claim"}),
			},
		}},
	}

	out, err := RenderHTML(doc)
	require.NoError(t, err)
	assert.Contains(t, out, "<p>The model emits a &lt;think&gt; token first.</p>")
	assert.Contains(t, out, "<p>Compute 2*3*4 with snake_case and [brackets] &amp; `ticks`.</p>")
	assert.Contains(t, out, "<li>* starred</li>")
	assert.Contains(t, out, "<li>a &lt;b&gt;bold&lt;/b&gt; claim</li>")
	assert.NotContains(t, out, "<em>")
	assert.NotContains(t, out, "<code>")
}

func TestRenderHTML_EscapedMarkersStayProse(t *testing.T) {
	doc := article.Document{
		Title: "T",
		Sections: []article.Section{{
			Title:  "S",
			Blocks: []article.Block{article.Paragraph("# literal hash")},
		}},
	}

	out, err := RenderHTML(doc)
	require.NoError(t, err)
	assert.Contains(t, out, "<p># literal hash</p>")
}
