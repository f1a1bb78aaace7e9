// Package templateservice coordinates the template store, the library folder
// and the built-in catalog.
package templateservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/catalog"
	"github.com/starford/minuta/internal/importer"
	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/storage"
	"github.com/starford/minuta/internal/store"
	"github.com/starford/minuta/internal/variable"
)

// CreateInput carries the fields of a new template.
type CreateInput struct {
	Name     string          `json:"name"`
	Content  string          `json:"content"`
	Category models.Category `json:"category"`
}

// Validate checks the required fields.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Content, validation.Required),
		validation.Field(&in.Category, validation.Required, validation.In(categoryValues()...)),
	)
}

// UpdateInput carries the fields to change; nil fields are left alone.
type UpdateInput struct {
	Name     *string          `json:"name,omitempty"`
	Content  *string          `json:"content,omitempty"`
	Category *models.Category `json:"category,omitempty"`
}

// SearchHit is one search result, from the store or the built-in catalog.
type SearchHit struct {
	store.SearchResult
	BuiltIn bool `json:"builtIn,omitempty"`
}

// Service coordinates store, library and catalog operations.
type Service struct {
	db     store.TemplateStore
	lib    storage.Provider
	logger *slog.Logger
}

// NewService creates a new template service. lib may be nil, in which case
// templates live only in the store.
func NewService(db store.TemplateStore, lib storage.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, lib: lib, logger: logger}
}

// CreatedNotice is the confirmation shown after a template is saved.
func CreatedNotice(t *models.Template) string {
	return fmt.Sprintf("Modelo %q criado com %d campos detectados", t.Name, len(t.Variables))
}

// List returns the templates of a category, newest first. When the store
// has none, or cannot be read, the built-in catalog is served instead.
func (s *Service) List(ctx context.Context, category models.Category) ([]models.Template, error) {
	rows, err := s.db.List(ctx, category)
	if err != nil {
		s.logger.Warn("list templates failed, serving catalog", slog.String("error", err.Error()))
		return catalog.ByCategory(category)
	}
	if len(rows) == 0 {
		return catalog.ByCategory(category)
	}
	return rows, nil
}

// Get returns a stored or built-in template.
func (s *Service) Get(ctx context.Context, id string) (*models.Template, error) {
	t, err := s.db.Get(ctx, id)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if bt, ok := catalog.Get(id); ok {
		return &bt, nil
	}
	return nil, apperr.ErrNotFound
}

// Create detects the variables of a new template and persists it. With a
// library folder configured the template is also written there as HTML.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Template, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	content := importer.SanitizeHTML(in.Content)
	now := time.Now().UTC()
	t := models.Template{
		ID:        variable.NewID(),
		Name:      in.Name,
		Category:  in.Category,
		Content:   content,
		Variables: variable.Detect(content, nil),
		Checksum:  storage.Checksum([]byte(content)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The store row goes first so the library watcher recognises the file.
	var fileSum string
	if s.lib != nil {
		p, err := s.freePath(in.Category, in.Name)
		if err != nil {
			return nil, err
		}
		t.SourcePath = p
		fileSum = t.Checksum
	}
	if err := s.db.Upsert(ctx, t, fileSum); err != nil {
		return nil, err
	}
	if t.SourcePath != "" {
		if err := s.lib.Write(t.SourcePath, []byte(content)); err != nil {
			_ = s.db.Delete(ctx, t.ID)
			return nil, err
		}
	}
	return &t, nil
}

// Update applies in to a stored template. A non-empty ifMatch must equal the
// current checksum. Changed content is re-scanned and reconciled so existing
// variables keep their identity. Built-in templates are read-only.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, ifMatch string) (*models.Template, error) {
	if catalog.IsBuiltIn(id) {
		return nil, fmt.Errorf("%w: built-in template %s is read-only", apperr.ErrConflict, id)
	}
	t, err := s.db.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != t.Checksum {
		return nil, apperr.ErrConflict
	}

	oldCategory := t.Category
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.Content != nil {
		t.Content = importer.SanitizeHTML(*in.Content)
		t.Variables = variable.Rescan(t.Variables, t.Content)
		t.Checksum = storage.Checksum([]byte(t.Content))
	}
	check := CreateInput{Name: t.Name, Content: t.Content, Category: t.Category}
	if err := check.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	t.UpdatedAt = time.Now().UTC()

	var fileSum string
	oldPath := t.SourcePath
	if s.lib != nil && oldPath != "" {
		target, err := s.targetPath(t, oldCategory)
		if err != nil {
			return nil, err
		}
		t.SourcePath = target
		fileSum = t.Checksum
	}
	if err := s.db.Upsert(ctx, *t, fileSum); err != nil {
		return nil, err
	}
	if fileSum != "" {
		if err := s.writeBack(t, oldPath); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Delete removes a stored template and its library file.
func (s *Service) Delete(ctx context.Context, id string) error {
	if catalog.IsBuiltIn(id) {
		return fmt.Errorf("%w: built-in template %s is read-only", apperr.ErrConflict, id)
	}
	t, err := s.db.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(ctx, id); err != nil {
		return err
	}
	if s.lib != nil && t.SourcePath != "" {
		if err := s.lib.Delete(t.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Search looks templates up in the store, then fuzzy-matches built-in
// template names. Results are de-duplicated by id.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchHit, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[r.ID] = struct{}{}
		out = append(out, SearchHit{SearchResult: r})
	}
	builtIn, err := catalog.Find(query)
	if err != nil {
		return nil, err
	}
	for _, t := range builtIn {
		if len(out) >= limit {
			break
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		out = append(out, SearchHit{
			SearchResult: store.SearchResult{ID: t.ID, Name: t.Name, Category: t.Category},
			BuiltIn:      true,
		})
	}
	return out, nil
}

// Import converts an uploaded file and creates a template from it. category
// overrides the one declared by the file; diversos is the last resort.
func (s *Service) Import(ctx context.Context, filename string, data []byte, category models.Category) (*models.Template, error) {
	imp, err := importer.Import(filename, data)
	if err != nil {
		if errors.Is(err, apperr.ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if category == "" {
		category = imp.Category
	}
	if category == "" {
		category = models.CategoryDiversos
	}
	return s.Create(ctx, CreateInput{Name: imp.Name, Content: imp.Content, Category: category})
}

// targetPath returns the library path t is written back to. A category
// change moves the file into the new category folder; non-HTML sources are
// replaced by an .html file next to them.
func (s *Service) targetPath(t *models.Template, oldCategory models.Category) (string, error) {
	dir, file := path.Split(t.SourcePath)
	if t.Category != oldCategory && strings.TrimSuffix(dir, "/") == string(oldCategory) {
		dir = string(t.Category) + "/"
	}
	ext := strings.ToLower(path.Ext(file))
	if ext != ".html" && ext != ".htm" {
		file = strings.TrimSuffix(file, path.Ext(file)) + ".html"
	}
	target := dir + file
	if target != t.SourcePath {
		if _, err := s.lib.Read(target); err == nil {
			return "", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, target)
		}
	}
	return target, nil
}

// writeBack writes t's content to its library path. A file that only
// changed folders is moved first; a converted source (.md, .docx, .pdf) is
// removed once its .html replacement is written.
func (s *Service) writeBack(t *models.Template, oldPath string) error {
	if oldPath != t.SourcePath && path.Base(oldPath) == path.Base(t.SourcePath) {
		if err := s.lib.Move(oldPath, t.SourcePath); err != nil {
			return err
		}
		oldPath = t.SourcePath
	}
	if err := s.lib.Write(t.SourcePath, []byte(t.Content)); err != nil {
		return err
	}
	if oldPath != t.SourcePath {
		if err := s.lib.Delete(oldPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove replaced library file failed",
				slog.String("path", oldPath), slog.String("error", err.Error()))
		}
	}
	return nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a template name into a file-name stem.
func slug(name string) string {
	s := strings.Trim(slugRe.ReplaceAllString(catalog.Fold(name), "-"), "-")
	if s == "" {
		return "modelo"
	}
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "-")
	}
	return s
}

// freePath picks a library path for a new template that does not collide
// with an existing file.
func (s *Service) freePath(category models.Category, name string) (string, error) {
	base := string(category) + "/" + slug(name)
	for i := 1; i < 1000; i++ {
		p := base + ".html"
		if i > 1 {
			p = fmt.Sprintf("%s-%d.html", base, i)
		}
		if _, err := s.lib.Read(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return p, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no free file name for %q", apperr.ErrAlreadyExists, name)
}

func categoryValues() []any {
	out := make([]any, len(models.Categories))
	for i, c := range models.Categories {
		out[i] = c
	}
	return out
}
