package api

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/minuta/internal/extraction"
	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/sse"
	"github.com/starford/minuta/internal/templateservice"
	"github.com/starford/minuta/internal/workflow"
)

// SessionHandler holds the review-session route handlers.
type SessionHandler struct {
	sessions  *workflow.Manager
	templates *templateservice.Service
	extractor extraction.Client
	events    *sse.Broker
}

// NewSessionHandler creates a SessionHandler. events may be nil.
func NewSessionHandler(sessions *workflow.Manager, templates *templateservice.Service, extractor extraction.Client, events *sse.Broker) *SessionHandler {
	return &SessionHandler{sessions: sessions, templates: templates, extractor: extractor, events: events}
}

// session resolves the {id} URL parameter, answering 404 itself.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return nil, false
	}
	return s, true
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Start a review session
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *SessionHandler) CreateSession(w http.ResponseWriter, _ *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, SessionResponse{Session: s.Snapshot()})
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get a session's state
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: s.Snapshot()})
}

// DeleteSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Discard a session and its uploaded documents
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetTemplate handles POST /api/sessions/{id}/template.
//
//	@Summary		Choose a stored template or upload raw template content
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Session id"
//	@Param			body	body		SessionTemplateRequest	true	"template_id, or name and content"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/template [post]
func (h *SessionHandler) SetTemplate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SessionTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch {
	case req.TemplateID != "":
		t, err := h.templates.Get(r.Context(), req.TemplateID)
		if err != nil {
			writeError(w, err, "select template", "internal error", slog.String("template", req.TemplateID))
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{Session: s.SelectTemplate(*t)})
	case strings.TrimSpace(req.Content) != "":
		snap := s.UploadTemplate(req.Name, req.Content)
		writeJSON(w, http.StatusOK, SessionResponse{
			Session: snap,
			Notice:  workflow.DetectedNotice(len(snap.Variables)),
		})
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("template_id or content is required"))
	}
}

// UpdateContent handles PUT /api/sessions/{id}/content.
//
//	@Summary		Edit the working content; variables are reconciled
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		ContentRequest	true	"New content"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/content [put]
func (h *SessionHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := s.EditContent(req.Content)
	if err != nil {
		writeError(w, err, "edit content", "internal error", slog.String("session", s.ID()))
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: snap})
}

// UploadDocuments handles POST /api/sessions/{id}/documents.
//
//	@Summary		Upload source documents (JPG, PNG, WEBP or PDF)
//	@Tags			sessions
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Session id"
//	@Param			file	formData	file	true	"Document, repeatable"
//	@Param			slot	formData	string	false	"rg-cnh, comprovante or outros"
//	@Success		201		{object}	DocumentsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/documents [post]
func (h *SessionHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	files, err := readUploads(w, r, "file", h.sessions.MaxBytes())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	slot := r.FormValue("slot")
	docs := make([]models.SourceDocument, 0, len(files))
	for _, f := range files {
		doc, err := s.AddDocument(f.Name, f.ContentType, slot, f.Data)
		if err != nil {
			writeError(w, err, "upload document", "internal error",
				slog.String("session", s.ID()), slog.String("file", f.Name))
			return
		}
		docs = append(docs, doc)
	}
	writeJSON(w, http.StatusCreated, DocumentsResponse{Documents: docs})
}

// DeleteDocument handles DELETE /api/sessions/{id}/documents/{docID}.
//
//	@Summary		Remove an uploaded document
//	@Tags			sessions
//	@Param			id		path	string	true	"Session id"
//	@Param			docID	path	string	true	"Document id"
//	@Success		204		"Document removed"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/documents/{docID} [delete]
func (h *SessionHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveDocument(chi.URLParam(r, "docID")); err != nil {
		writeError(w, err, "remove document", "internal error", slog.String("session", s.ID()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Extract handles POST /api/sessions/{id}/extract.
//
// A failed extraction is answered with 200 and a notice; the fields are
// then filled by hand.
//
//	@Summary		Extract field values from the uploaded documents
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	ExtractResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/extract [post]
func (h *SessionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	// The call runs to completion even if the client goes away.
	out, err := s.Extract(context.WithoutCancel(r.Context()), h.extractor)
	if err != nil {
		writeError(w, err, "extract", "internal error", slog.String("session", s.ID()))
		return
	}
	if h.events != nil {
		h.events.Publish(sse.Event{Type: sse.SessionExtracted, Data: map[string]any{
			"session": s.ID(),
			"applied": out.Applied,
			"failed":  out.Failed,
		}})
	}
	writeJSON(w, http.StatusOK, ExtractResponse{Outcome: out, Session: s.Snapshot()})
}

// SetValue handles PUT /api/sessions/{id}/variables/{varID}.
//
//	@Summary		Type a variable's value
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			varID	path		string			true	"Variable id"
//	@Param			body	body		ValueRequest	true	"Value"
//	@Success		200		{object}	ValueResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/variables/{varID} [put]
func (h *SessionHandler) SetValue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := s.SetValue(chi.URLParam(r, "varID"), req.Value)
	if err != nil {
		writeError(w, err, "set value", "internal error", slog.String("session", s.ID()))
		return
	}
	writeJSON(w, http.StatusOK, ValueResponse{Variable: v, Progress: s.Progress()})
}

// Select handles PUT /api/sessions/{id}/selection.
//
//	@Summary		Highlight a variable in the preview
//	@Tags			sessions
//	@Accept			json
//	@Param			id		path	string			true	"Session id"
//	@Param			body	body	SelectRequest	true	"Variable id, empty to clear"
//	@Success		204		"Selection stored"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/selection [put]
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Select(req.VariableID); err != nil {
		writeError(w, err, "select variable", "internal error", slog.String("session", s.ID()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /api/sessions/{id}/preview.
//
//	@Summary		Render the highlighted preview
//	@Tags			sessions
//	@Produce		html
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/preview [get]
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeHTML(w, s.Preview())
}

// Export handles GET /api/sessions/{id}/export.
//
//	@Summary		Download the filled document
//	@Tags			sessions
//	@Produce		html,plain,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Param			id		path		string	true	"Session id"
//	@Param			format	query		string	false	"Output format"	Enums(html, print, txt, xlsx)
//	@Success		200		{file}		file
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/export [get]
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	out, err := s.Export(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err, "export", "internal error", slog.String("session", s.ID()))
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

// Back handles POST /api/sessions/{id}/back.
//
//	@Summary		Go back one step; at the first step the session is reset
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	BackResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/back [post]
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	step, moved := s.Back()
	if !moved {
		_ = h.sessions.Delete(s.ID())
		writeJSON(w, http.StatusOK, BackResponse{Step: step, Reset: true})
		return
	}
	writeJSON(w, http.StatusOK, BackResponse{Step: step})
}

// GoTo handles PUT /api/sessions/{id}/step.
//
//	@Summary		Jump to a step already reached
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		StepRequest	true	"Target step"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/step [put]
func (h *SessionHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req StepRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.GoTo(req.Step); err != nil {
		writeError(w, err, "change step", "internal error", slog.String("session", s.ID()))
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: s.Snapshot()})
}
