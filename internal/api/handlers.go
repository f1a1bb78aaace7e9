package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/placeholder"
	"github.com/starford/minuta/internal/render"
	"github.com/starford/minuta/internal/sse"
	"github.com/starford/minuta/internal/store"
	"github.com/starford/minuta/internal/templateservice"
	"github.com/starford/minuta/internal/variable"
)

const maxTemplateBytes = 10 << 20

// Handler holds the template route handlers.
type Handler struct {
	svc    *templateservice.Service
	events *sse.Broker
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *templateservice.Service, events *sse.Broker) *Handler {
	return &Handler{svc: svc, events: events}
}

func (h *Handler) publish(kind, id, path string) {
	if h.events != nil {
		h.events.PublishTemplateEvent(kind, id, path)
	}
}

// ListTemplates handles GET /api/templates.
//
//	@Summary		List templates, newest first
//	@Tags			templates
//	@Produce		json
//	@Param			category	query		string	false	"Filter by category"
//	@Success		200			{object}	TemplateListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		category = c
	}
	items, err := h.svc.List(r.Context(), category)
	if err != nil {
		writeError(w, err, "list templates", "internal error")
		return
	}
	out := make([]models.TemplateSummary, len(items))
	for i, t := range items {
		out[i] = t.Summary()
	}
	writeJSON(w, http.StatusOK, TemplateListResponse{Templates: out, Total: len(out)})
}

// GetTemplate handles GET /api/templates/{id}.
//
//	@Summary		Get a template with its variables
//	@Tags			templates
//	@Produce		json
//	@Param			id	path		string	true	"Template id"
//	@Success		200	{object}	models.Template
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [get]
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "get template", "internal error", slog.String("id", id))
		return
	}
	w.Header().Set("ETag", strconv.Quote(t.Checksum))
	writeJSON(w, http.StatusOK, t)
}

// CreateTemplate handles POST /api/templates.
//
//	@Summary		Create a template; its placeholders become variables
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTemplateRequest	true	"Template to create"
//	@Success		201		{object}	TemplateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates [post]
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Create(r.Context(), templateservice.CreateInput{
		Name:     req.Name,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, err, "create template", saveFailedNotice, slog.String("name", req.Name))
		return
	}
	h.publish(store.KindCreated, t.ID, t.SourcePath)
	writeJSON(w, http.StatusCreated, TemplateResponse{Template: t, Notice: templateservice.CreatedNotice(t)})
}

// ImportTemplate handles POST /api/templates/import.
//
//	@Summary		Import a .html, .md, .docx or .pdf file as a template
//	@Tags			templates
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"Template file"
//	@Param			category	formData	string	false	"Category"
//	@Success		201			{object}	TemplateResponse
//	@Failure		400			{object}	errResponse
//	@Failure		415			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/import [post]
func (h *Handler) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	files, err := readUploads(w, r, "file", maxTemplateBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	f := files[0]
	if len(f.Data) > maxTemplateBytes {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large"))
		return
	}
	var category models.Category
	if raw := r.FormValue("category"); raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		category = c
	}
	t, err := h.svc.Import(r.Context(), f.Name, f.Data, category)
	if err != nil {
		writeError(w, err, "import template", saveFailedNotice, slog.String("file", f.Name))
		return
	}
	h.publish(store.KindCreated, t.ID, t.SourcePath)
	writeJSON(w, http.StatusCreated, TemplateResponse{Template: t, Notice: templateservice.CreatedNotice(t)})
}

// UpdateTemplate handles PUT /api/templates/{id}.
//
//	@Summary		Update a template with optimistic concurrency
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Template id"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateTemplateRequest	true	"Fields to change"
//	@Success		200			{object}	models.Template
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [put]
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	t, err := h.svc.Update(r.Context(), id, templateservice.UpdateInput{
		Name:     req.Name,
		Content:  req.Content,
		Category: req.Category,
	}, ifMatch)
	if err != nil {
		writeError(w, err, "update template", saveFailedNotice, slog.String("id", id))
		return
	}
	h.publish(store.KindUpdated, t.ID, t.SourcePath)
	w.Header().Set("ETag", strconv.Quote(t.Checksum))
	writeJSON(w, http.StatusOK, t)
}

// DeleteTemplate handles DELETE /api/templates/{id}.
//
//	@Summary		Delete a template
//	@Tags			templates
//	@Param			id	path	string	true	"Template id"
//	@Success		204	"Template deleted"
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [delete]
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err, "delete template", deleteFailedNotice, slog.String("id", id))
		return
	}
	h.publish(store.KindDeleted, id, "")
	w.WriteHeader(http.StatusNoContent)
}

// PreviewTemplate handles GET /api/templates/{id}/preview.
//
//	@Summary		Render a template with every variable empty
//	@Tags			templates
//	@Produce		html
//	@Param			id	path		string	true	"Template id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id}/preview [get]
func (h *Handler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "preview template", "internal error", slog.String("id", id))
		return
	}
	writeHTML(w, render.Preview(t.Content, t.Variables))
}

// Search handles GET /api/search.
//
//	@Summary		Search templates by name and text
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search", "internal error", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Scan handles POST /api/scan.
//
//	@Summary		Detect the placeholders of some content
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScanRequest	true	"Template content"
//	@Success		200		{object}	ScanResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scan [post]
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	names := placeholder.Scan(req.Content)
	if names == nil {
		names = []string{}
	}
	vars := variable.Detect(req.Content, nil)
	if vars == nil {
		vars = []models.Variable{}
	}
	writeJSON(w, http.StatusOK, ScanResponse{Placeholders: names, Variables: vars})
}

func writeHTML(w http.ResponseWriter, markup string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markup))
}
