package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	maxUploadBytes = 50 << 20 // whole multipart request
	maxFormMemory  = 8 << 20
)

// upload is one file part of a multipart request.
type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// safeName reduces a client-supplied filename to a plain base name.
func safeName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("invalid filename: %q", name)
	}
	return base, nil
}

// readUploads parses a multipart/form-data request and returns every part
// named field. Each file may hold at most perFile bytes.
func readUploads(w http.ResponseWriter, r *http.Request, field string, perFile int64) ([]upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, errors.New("file too large or invalid multipart")
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, fmt.Errorf("missing '%s' field in multipart form", field)
	}
	out := make([]upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readPart(fh, perFile)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func readPart(fh *multipart.FileHeader, perFile int64) (upload, error) {
	name, err := safeName(fh.Filename)
	if err != nil {
		return upload{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return upload{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	// One byte past the limit is read so oversize files are still rejected
	// downstream with a clear message.
	data, err := io.ReadAll(io.LimitReader(f, perFile+1))
	if err != nil {
		return upload{}, fmt.Errorf("read %s: %w", name, err)
	}
	return upload{Name: name, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}
