package workflow

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/starford/minuta/internal/apperr"
)

// DefaultMaxDocumentBytes caps a single uploaded source document.
const DefaultMaxDocumentBytes = 10 << 20

var acceptedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// sniffType returns the MIME type of data, trusting the content over the
// declared type.
func sniffType(declared string, data []byte) string {
	detected := http.DetectContentType(data)
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	if _, ok := acceptedTypes[detected]; ok {
		return detected
	}
	return strings.ToLower(strings.TrimSpace(declared))
}

// checkDocument validates an upload and returns its MIME type, storage
// extension and page count (PDFs only).
func checkDocument(name, declared string, data []byte, maxBytes int64) (mime, ext string, pages int, err error) {
	if len(data) == 0 {
		return "", "", 0, fmt.Errorf("%w: arquivo vazio: %s", apperr.ErrInvalidInput, name)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", "", 0, fmt.Errorf("%w: %s excede o limite de %s", apperr.ErrInvalidInput,
			name, humanize.Bytes(uint64(maxBytes)))
	}
	mime = sniffType(declared, data)
	ext, ok := acceptedTypes[mime]
	if !ok {
		return "", "", 0, fmt.Errorf("%w: %s: tipo %q não aceito (use JPG, PNG, WEBP ou PDF)",
			apperr.ErrUnsupportedFormat, name, mime)
	}
	if mime == "application/pdf" {
		pages, err = pdfPageCount(data)
		if err != nil {
			return "", "", 0, fmt.Errorf("%w: %s: %v", apperr.ErrInvalidInput, name, err)
		}
	}
	return mime, ext, pages, nil
}

func pdfPageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	if ctx.PageCount == 0 {
		return 0, errors.New("pdf has no pages")
	}
	return ctx.PageCount, nil
}

// dataURL encodes a document as a data URL for the extraction service.
func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
