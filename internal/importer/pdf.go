package importer

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var blankLineRe = regexp.MustCompile(`\n\s*\n`)

// pdfToHTML extracts the plain text of every page. Blank lines separate
// paragraphs; each page starts a new one.
func pdfToHTML(data []byte) (out string, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf: open: %w", err)
	}
	var blocks []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf: page %d: %w", i, err)
		}
		text = strings.ReplaceAll(text, "\r\n", "\n")
		blocks = append(blocks, blankLineRe.Split(text, -1)...)
	}
	return paragraphs(blocks), nil
}
