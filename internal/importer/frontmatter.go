package importer

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/minuta/internal/models"
)

// Frontmatter is the YAML header of a Markdown template.
type Frontmatter map[string]any

// String returns the trimmed string value of key, or "".
func (f Frontmatter) String(key string) string {
	if s, ok := f[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// Category returns the declared category when it is a known one.
func (f Frontmatter) Category() models.Category {
	c, err := models.ParseCategory(f.String("category"))
	if err != nil {
		return ""
	}
	return c
}

// splitFrontmatter separates a leading ----delimited YAML block from the
// body. Missing, unterminated or invalid headers leave the whole input as body.
func splitFrontmatter(data []byte) (Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}
