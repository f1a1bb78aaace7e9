// Package importer converts template files (.html, .htm, .md, .docx, .pdf)
// into sanitised HTML markup ready for placeholder scanning.
package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/models"
)

// UnsupportedMessage is shown when a file type cannot be imported.
const UnsupportedMessage = "Formato não suportado. Use .docx ou .html"

// Imported is the result of converting one template file.
type Imported struct {
	Name     string
	Category models.Category // empty when the file does not declare one
	Content  string
}

// Supported reports whether filename has an importable extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm", ".md", ".docx", ".pdf":
		return true
	}
	return false
}

// Import converts data according to the extension of filename. The template
// name defaults to the file name without its extension.
func Import(filename string, data []byte) (*Imported, error) {
	base := filepath.Base(filename)
	out := &Imported{Name: strings.TrimSuffix(base, filepath.Ext(base))}

	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		out.Content = SanitizeHTML(string(data))
	case ".md":
		err = importMarkdown(data, out)
	case ".docx":
		out.Content, err = docxToHTML(data)
	case ".pdf":
		out.Content, err = pdfToHTML(data)
	default:
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, UnsupportedMessage)
	}
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", base, err)
	}
	out.Content = strings.TrimSpace(out.Content)
	return out, nil
}
