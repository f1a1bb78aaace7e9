package importer

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var policy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyles("text-align", "margin-left", "text-indent", "font-weight", "text-decoration").Globally()
	p.AllowAttrs("class").Globally()
	return p
}()

// SanitizeHTML drops scripts, event handlers and other unsafe markup while
// keeping document structure, alignment and placeholder text.
func SanitizeHTML(markup string) string {
	return policy.Sanitize(markup)
}

// paragraphs wraps each block of plain text in <p>, escaping its content.
func paragraphs(blocks []string) string {
	var b strings.Builder
	for _, blk := range blocks {
		blk = strings.TrimSpace(blk)
		if blk == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(blk), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}

func importMarkdown(data []byte, out *Imported) error {
	fm, body := splitFrontmatter(data)
	if fm != nil {
		if name := fm.String("name"); name != "" {
			out.Name = name
		} else if title := fm.String("title"); title != "" {
			out.Name = title
		}
		out.Category = fm.Category()
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return err
	}
	out.Content = SanitizeHTML(buf.String())
	return nil
}
