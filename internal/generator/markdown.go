package generator

import (
	"regexp"
	"strings"

	"textdoc/internal/article"
)

// RenderMarkdown writes a document as Markdown: the title as H1, sections as
// H2, heading blocks as H3, lists as dash bullets.
func RenderMarkdown(doc article.Document) string {
	var sb strings.Builder
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = article.DefaultFallbackTitle
	}
	sb.WriteString("# " + escapeInline(title) + "\n")

	for _, sec := range doc.Sections {
		sb.WriteString("\n## " + escapeInline(strings.TrimSpace(sec.Title)) + "\n")
		for _, b := range sec.Blocks {
			if b.Empty() {
				continue
			}
			sb.WriteString("\n")
			switch b.Kind {
			case article.KindList:
				for _, item := range b.Items {
					sb.WriteString("- " + escapeProse(item) + "\n")
				}
			case article.KindHeading:
				sb.WriteString("### " + escapeInline(strings.TrimSpace(b.Text)) + "\n")
			default:
				sb.WriteString(escapeProse(b.Text) + "\n")
			}
		}
	}
	return sb.String()
}

var (
	blockStart   = regexp.MustCompile(`^(#{1,6}(\s|$)|>|[-+*](\s|$)|={3,}|-{3,}|_{3,})`)
	orderedStart = regexp.MustCompile(`^\d{1,9}[.)](\s|$)`)
)

// inlineEscaper backslash-escapes emphasis, code, link, autolink, raw HTML,
// entity, strikethrough and table syntax so prose renders as written.
var inlineEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"&", `\&`,
	"~", `\~`,
	"|", `\|`,
)

func escapeInline(text string) string {
	return inlineEscaper.Replace(text)
}

// escapeProse escapes a paragraph or list item for Markdown output.
func escapeProse(text string) string {
	return escapeBlockStart(escapeInline(strings.TrimSpace(text)))
}

// escapeBlockStart keeps prose from being read back as Markdown block
// syntax (headings, quotes, bullets, ordered items, rules).
func escapeBlockStart(text string) string {
	text = strings.TrimSpace(text)
	if orderedStart.MatchString(text) {
		i := strings.IndexAny(text, ".)")
		return text[:i] + `\` + text[i:]
	}
	if blockStart.MatchString(text) {
		return `\` + text
	}
	return text
}
