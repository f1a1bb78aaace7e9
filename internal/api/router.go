package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/minuta/internal/extraction"
	"github.com/starford/minuta/internal/sse"
	"github.com/starford/minuta/internal/templateservice"
	"github.com/starford/minuta/internal/workflow"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, receives template and session events and is served
// at GET /events inside the auth group.
func NewRouter(svc *templateservice.Service, sessions *workflow.Manager, extractor extraction.Client, events *sse.Broker, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc, events)
	sh := NewSessionHandler(sessions, svc, extractor, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Templates.
	r.Get("/templates", h.ListTemplates)
	r.Post("/templates", h.CreateTemplate)
	r.Post("/templates/import", h.ImportTemplate)
	r.Get("/templates/{id}", h.GetTemplate)
	r.Put("/templates/{id}", h.UpdateTemplate)
	r.Delete("/templates/{id}", h.DeleteTemplate)
	r.Get("/templates/{id}/preview", h.PreviewTemplate)

	r.Get("/search", h.Search)
	r.Post("/scan", h.Scan)

	// Review sessions.
	r.Post("/sessions", sh.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", sh.GetSession)
		r.Delete("/", sh.DeleteSession)
		r.Post("/template", sh.SetTemplate)
		r.Put("/content", sh.UpdateContent)
		r.Post("/documents", sh.UploadDocuments)
		r.Delete("/documents/{docID}", sh.DeleteDocument)
		r.Post("/extract", sh.Extract)
		r.Put("/variables/{varID}", sh.SetValue)
		r.Put("/selection", sh.Select)
		r.Get("/preview", sh.Preview)
		r.Get("/export", sh.Export)
		r.Post("/back", sh.Back)
		r.Put("/step", sh.GoTo)
	})

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
