package store

import (
	"context"

	"github.com/starford/minuta/internal/models"
)

// TemplateStore is the persistence contract used by the template service.
type TemplateStore interface {
	Upsert(ctx context.Context, t models.Template, fileChecksum string) error
	Get(ctx context.Context, id string) (*models.Template, error)
	BySourcePath(ctx context.Context, path string) (*models.Template, error)
	Delete(ctx context.Context, id string) error
	DeleteBySourcePath(ctx context.Context, path string) (string, error)
	List(ctx context.Context, category models.Category) ([]models.Template, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	LibraryChecksums(ctx context.Context) (map[string]string, error)
	Close() error
}

var _ TemplateStore = (*DB)(nil)
