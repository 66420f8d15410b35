package format

import (
	"html"
	"strings"

	"problem-relay/web/types"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownToHTML renders one message body. Raw HTML in the source is dropped
// and $-delimited math is left for MathJax on the client.
func MarkdownToHTML(text string) string {
	// parsers carry state and must not be reused between documents
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.MathJax)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	return string(markdown.ToHTML([]byte(text), p, r))
}

// RenderTranscript converts a stored session into a standalone HTML page.
func RenderTranscript(sessionID string, messages []types.Message) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Session ")
	b.WriteString(html.EscapeString(sessionID))
	b.WriteString("</title>\n</head>\n<body>\n")

	if len(messages) == 0 {
		b.WriteString("<p class=\"empty\">No messages.</p>\n")
	}
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "unknown"
		}
		b.WriteString("<section class=\"message ")
		b.WriteString(html.EscapeString(role))
		b.WriteString("\">\n<h3>")
		b.WriteString(html.EscapeString(role))
		b.WriteString("</h3>\n")
		b.WriteString(MarkdownToHTML(m.Text()))
		b.WriteString("</section>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}
