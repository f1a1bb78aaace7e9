package api

import (
	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/templateservice"
	"github.com/starford/minuta/internal/workflow"
)

// CreateTemplateRequest is the request body for creating a template.
type CreateTemplateRequest struct {
	Name     string          `json:"name" example:"Declaração de Pobreza" validate:"required"`
	Content  string          `json:"content" example:"<p>Eu, {{nome}}, CPF {{cpf}}...</p>" validate:"required"`
	Category models.Category `json:"category" example:"declaracoes" validate:"required"`
}

// UpdateTemplateRequest is the request body for updating a template. Omitted
// fields are left unchanged.
type UpdateTemplateRequest struct {
	Name     *string          `json:"name,omitempty"`
	Content  *string          `json:"content,omitempty"`
	Category *models.Category `json:"category,omitempty"`
}

// TemplateResponse wraps a saved template and the confirmation notice.
type TemplateResponse struct {
	Template *models.Template `json:"template" validate:"required"`
	Notice   string           `json:"notice,omitempty" example:"Modelo \"X\" criado com 3 campos detectados"`
}

// TemplateListResponse wraps a template listing.
type TemplateListResponse struct {
	Templates []models.TemplateSummary `json:"templates" validate:"required"`
	Total     int                      `json:"total" example:"5" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []templateservice.SearchHit `json:"results" validate:"required"`
}

// ScanRequest is the request body of POST /scan.
type ScanRequest struct {
	Content string `json:"content" validate:"required"`
}

// ScanResponse lists the placeholders found in some content and the
// variables they classify to.
type ScanResponse struct {
	Placeholders []string          `json:"placeholders" validate:"required"`
	Variables    []models.Variable `json:"variables" validate:"required"`
}

// SessionTemplateRequest starts a session from a stored template
// (TemplateID) or from raw content.
type SessionTemplateRequest struct {
	TemplateID string `json:"template_id,omitempty" example:"req-certidao-negativa"`
	Name       string `json:"name,omitempty"`
	Content    string `json:"content,omitempty"`
}

// ContentRequest replaces a session's working content.
type ContentRequest struct {
	Content string `json:"content" validate:"required"`
}

// ValueRequest sets a variable's value.
type ValueRequest struct {
	Value string `json:"value"`
}

// SelectRequest highlights a variable in the preview.
type SelectRequest struct {
	VariableID string `json:"variable_id"`
}

// StepRequest jumps to a step already reached.
type StepRequest struct {
	Step models.WorkflowStep `json:"step" example:"review" validate:"required"`
}

// SessionResponse wraps a session snapshot and an optional notice.
type SessionResponse struct {
	Session workflow.Snapshot `json:"session" validate:"required"`
	Notice  string            `json:"notice,omitempty"`
}

// DocumentsResponse lists newly uploaded documents.
type DocumentsResponse struct {
	Documents []models.SourceDocument `json:"documents" validate:"required"`
}

// ExtractResponse reports an extraction pass.
type ExtractResponse struct {
	Outcome workflow.Outcome  `json:"outcome" validate:"required"`
	Session workflow.Snapshot `json:"session" validate:"required"`
}

// ValueResponse returns the edited variable and the new progress.
type ValueResponse struct {
	Variable models.Variable   `json:"variable" validate:"required"`
	Progress workflow.Progress `json:"progress" validate:"required"`
}

// BackResponse reports the step after going back. Reset is true when the
// session was already at its first step and has been discarded.
type BackResponse struct {
	Step  models.WorkflowStep `json:"step"`
	Reset bool                `json:"reset"`
}
