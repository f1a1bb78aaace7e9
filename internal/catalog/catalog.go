// Package catalog holds the built-in templates shipped with the binary. They
// are served when the template store is empty or unavailable.
package catalog

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/variable"
)

//go:embed templates/*.yaml
var files embed.FS

// field overrides the classified label or type of one placeholder.
type field struct {
	Label    string `yaml:"label"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

type entry struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name"`
	Category string           `yaml:"category"`
	Created  string           `yaml:"created"`
	Fields   map[string]field `yaml:"fields"`
	Content  string           `yaml:"content"`
}

var (
	loadOnce  sync.Once
	templates []models.Template
	loadErr   error
)

func load() ([]models.Template, error) {
	loadOnce.Do(func() {
		templates, loadErr = parse(files)
	})
	return templates, loadErr
}

func parse(fsys fs.FS) ([]models.Template, error) {
	names, err := fs.Glob(fsys, "templates/*.yaml")
	if err != nil {
		return nil, err
	}
	out := make([]models.Template, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		t, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path.Base(name), err)
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func decode(data []byte) (models.Template, error) {
	var e entry
	if err := yaml.Unmarshal(data, &e); err != nil {
		return models.Template{}, err
	}
	if e.ID == "" || e.Name == "" {
		return models.Template{}, errors.New("id and name are required")
	}
	cat, err := models.ParseCategory(e.Category)
	if err != nil {
		return models.Template{}, err
	}
	created, err := time.Parse(time.DateOnly, e.Created)
	if err != nil {
		return models.Template{}, fmt.Errorf("created: %w", err)
	}

	content := strings.TrimSpace(e.Content)
	n := 0
	vars := variable.Detect(content, func() string {
		n++
		return fmt.Sprintf("v%d", n)
	})
	for i := range vars {
		f, ok := e.Fields[vars[i].Name]
		if !ok {
			continue
		}
		if f.Label != "" {
			vars[i].DisplayName = f.Label
		}
		if f.Type != "" {
			typ, err := models.ParseVariableType(f.Type)
			if err != nil {
				return models.Template{}, fmt.Errorf("field %s: %w", vars[i].Name, err)
			}
			vars[i].Type = typ
		}
		vars[i].Required = !f.Optional
	}

	sum := sha256.Sum256([]byte(content))
	return models.Template{
		ID:        e.ID,
		Name:      e.Name,
		Category:  cat,
		Content:   content,
		Variables: vars,
		Checksum:  hex.EncodeToString(sum[:]),
		BuiltIn:   true,
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

func clone(t models.Template) models.Template {
	t.Variables = models.CloneVariables(t.Variables)
	return t
}

// All returns every built-in template, newest first.
func All() ([]models.Template, error) {
	ts, err := load()
	if err != nil {
		return nil, err
	}
	out := make([]models.Template, len(ts))
	for i, t := range ts {
		out[i] = clone(t)
	}
	return out, nil
}

// ByCategory returns the built-in templates of one category, newest first.
// An empty category returns all of them.
func ByCategory(c models.Category) ([]models.Template, error) {
	ts, err := All()
	if err != nil || c == "" {
		return ts, err
	}
	out := ts[:0]
	for _, t := range ts {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out, nil
}

// Get returns the built-in template with the given id.
func Get(id string) (models.Template, bool) {
	ts, err := load()
	if err != nil {
		return models.Template{}, false
	}
	for _, t := range ts {
		if t.ID == id {
			return clone(t), true
		}
	}
	return models.Template{}, false
}

// IsBuiltIn reports whether id names a built-in template.
func IsBuiltIn(id string) bool {
	_, ok := Get(id)
	return ok
}

// Fold lowercases s and strips diacritics so "locacao" matches "Locação".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Find fuzzy-matches query against template names, ignoring case and
// accents, best match first.
func Find(query string) ([]models.Template, error) {
	ts, err := load()
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = Fold(t.Name)
	}
	matches := fuzzy.Find(Fold(query), names)
	out := make([]models.Template, 0, len(matches))
	for _, m := range matches {
		out = append(out, clone(ts[m.Index]))
	}
	return out, nil
}
