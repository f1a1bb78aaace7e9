package render

import (
	"bytes"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var printTmpl = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  @page { size: A4; margin: 2.5cm; }
  body { font-family: Georgia, "Times New Roman", serif; font-size: 12pt; line-height: 1.6; color: #000; }
  p { text-align: justify; margin: 0 0 1em; }
  h1, h2, h3 { text-align: center; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// PrintDocument wraps exported markup in a standalone A4 page ready for the
// browser print dialog.
func PrintDocument(title, body string) (string, error) {
	var buf bytes.Buffer
	err := printTmpl.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body)}) //nolint:gosec // body is exported template markup
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	blockEndRe  = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|h[1-6]|li|tr)>`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
	strict      = bluemonday.StrictPolicy()
)

// PlainText strips markup from exported content, keeping paragraph breaks.
func PlainText(markup string) string {
	s := blockEndRe.ReplaceAllString(markup, "$0\n")
	s = html.UnescapeString(strict.Sanitize(s))
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s) + "\n"
}
