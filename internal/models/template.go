// Package models defines the domain types for minuta.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category groups templates in the catalog.
type Category string

const (
	CategoryContratos     Category = "contratos"
	CategoryProcuracoes   Category = "procuracoes"
	CategoryRequerimentos Category = "requerimentos"
	CategoryDeclaracoes   Category = "declaracoes"
	CategoryDiversos      Category = "diversos"
	CategoryOutros        Category = "outros"
)

// Categories lists every category in catalog order.
var Categories = []Category{
	CategoryContratos, CategoryProcuracoes, CategoryRequerimentos,
	CategoryDeclaracoes, CategoryDiversos, CategoryOutros,
}

// ParseCategory maps a case-insensitive name to its Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryContratos, CategoryProcuracoes, CategoryRequerimentos,
		CategoryDeclaracoes, CategoryDiversos, CategoryOutros:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Label is the Portuguese heading shown for the category.
func (c Category) Label() string {
	switch c {
	case CategoryContratos:
		return "Contratos"
	case CategoryProcuracoes:
		return "Procurações"
	case CategoryRequerimentos:
		return "Requerimentos"
	case CategoryDeclaracoes:
		return "Declarações"
	case CategoryDiversos:
		return "Diversos"
	case CategoryOutros:
		return "Outros"
	}
	return string(c)
}

// UnmarshalJSON rejects categories outside the closed set.
func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Template is a document model whose content carries placeholders.
type Template struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   Category   `json:"category"`
	Content    string     `json:"content"`
	Variables  []Variable `json:"variables"`
	SourcePath string     `json:"sourcePath,omitempty"`
	Checksum   string     `json:"checksum"`
	BuiltIn    bool       `json:"builtIn,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// TemplateSummary is the lightweight listing form of a Template.
type TemplateSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	VariableCount int       `json:"variableCount"`
	BuiltIn       bool      `json:"builtIn,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Summary returns the listing form of t.
func (t Template) Summary() TemplateSummary {
	return TemplateSummary{
		ID:            t.ID,
		Name:          t.Name,
		Category:      t.Category,
		VariableCount: len(t.Variables),
		BuiltIn:       t.BuiltIn,
		CreatedAt:     t.CreatedAt,
	}
}
