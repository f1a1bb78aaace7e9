// Package render substitutes variable values into template markup, either
// highlighted for on-screen preview or clean for export.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/placeholder"
	"github.com/starford/minuta/internal/variable"
)

func index(vars []models.Variable) map[string]models.Variable {
	m := make(map[string]models.Variable, len(vars))
	for _, v := range vars {
		key := strings.ToLower(v.Name)
		if _, dup := m[key]; !dup {
			m[key] = v
		}
	}
	return m
}

// Preview renders content for display. Filled placeholders become a
// filled-variable span holding the value, empty ones an empty-variable span
// holding {{DisplayName}}. Placeholders with no variable are left as written.
func Preview(content string, vars []models.Variable) string {
	return PreviewSelected(content, vars, "")
}

// PreviewSelected is Preview with the spans of selectedID marked selected.
func PreviewSelected(content string, vars []models.Variable, selectedID string) string {
	byName := index(vars)
	return placeholder.Replace(content, func(o placeholder.Occurrence) string {
		v, ok := byName[o.Name]
		if !ok {
			return o.Raw
		}
		class := "empty-variable"
		text := "{{" + html.EscapeString(v.DisplayName) + "}}"
		if v.HasValue() {
			class = "filled-variable"
			text = html.EscapeString(v.StringValue())
		}
		if selectedID != "" && v.ID == selectedID {
			class += " selected"
		}
		return fmt.Sprintf(`<span class="%s" data-id="%s">%s</span>`, class, html.EscapeString(v.ID), text)
	})
}

// Export renders content for output documents: each placeholder becomes the
// variable's value, or {{DisplayName}} when it has none. No highlight markup
// is emitted. Placeholders with no variable fall back to their classified label.
func Export(content string, vars []models.Variable) string {
	byName := index(vars)
	return placeholder.Replace(content, func(o placeholder.Occurrence) string {
		v, ok := byName[o.Name]
		if !ok {
			return "{{" + html.EscapeString(variable.DisplayName(o.Name)) + "}}"
		}
		if v.HasValue() {
			return html.EscapeString(v.StringValue())
		}
		return "{{" + html.EscapeString(v.DisplayName) + "}}"
	})
}
