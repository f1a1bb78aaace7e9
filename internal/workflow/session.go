// Package workflow holds review sessions: one user's walk from a template to
// a filled, exported document.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/extraction"
	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/render"
	"github.com/starford/minuta/internal/storage"
	"github.com/starford/minuta/internal/variable"
)

// Notices returned to the user.
const (
	FailureNotice   = "Falha no processamento. Preencha os campos manualmente."
	ExtractedNotice = "Dados extraídos com sucesso"
)

// stepOrder is the order Back walks through.
var stepOrder = []models.WorkflowStep{
	models.StepSelectTemplate,
	models.StepUploadTemplate,
	models.StepUploadDocuments,
	models.StepReview,
	models.StepExport,
}

const loadConcurrency = 4

// Progress counts filled variables.
type Progress struct {
	Filled int `json:"filled"`
	Total  int `json:"total"`
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID           string                  `json:"id"`
	Step         models.WorkflowStep     `json:"step"`
	Completed    []models.WorkflowStep   `json:"completedSteps"`
	TemplateID   string                  `json:"templateId,omitempty"`
	TemplateName string                  `json:"templateName,omitempty"`
	Content      string                  `json:"content"`
	Variables    []models.Variable       `json:"variables"`
	Documents    []models.SourceDocument `json:"documents"`
	SelectedID   string                  `json:"selectedId,omitempty"`
	Extracting   bool                    `json:"extracting"`
	Progress     Progress                `json:"progress"`
	Issues       []variable.Issue        `json:"issues"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// Outcome reports what an extraction pass did.
type Outcome struct {
	Applied int    `json:"applied"`
	Failed  bool   `json:"failed"`
	Notice  string `json:"notice"`
}

// Session owns the state of one review. Every method is safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	id           string
	step         models.WorkflowStep
	completed    []models.WorkflowStep
	templateID   string
	templateName string
	content      string
	vars         []models.Variable
	docs         []models.SourceDocument
	selected     string
	extracting   bool
	closed       bool
	createdAt    time.Time
	updatedAt    time.Time

	uploads  storage.Provider
	maxBytes int64
	logger   *slog.Logger
}

func newSession(id string, uploads storage.Provider, maxBytes int64, logger *slog.Logger) *Session {
	now := time.Now().UTC()
	return &Session{
		id:        id,
		step:      models.StepSelectTemplate,
		createdAt: now,
		updatedAt: now,
		uploads:   uploads,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	filled, total := variable.Progress(s.vars)
	issues := variable.Check(s.vars)
	if issues == nil {
		issues = []variable.Issue{}
	}
	vars := models.CloneVariables(s.vars)
	if vars == nil {
		vars = []models.Variable{}
	}
	docs := slices.Clone(s.docs)
	if docs == nil {
		docs = []models.SourceDocument{}
	}
	return Snapshot{
		ID:           s.id,
		Step:         s.step,
		Completed:    slices.Clone(s.completed),
		TemplateID:   s.templateID,
		TemplateName: s.templateName,
		Content:      s.content,
		Variables:    vars,
		Documents:    docs,
		SelectedID:   s.selected,
		Extracting:   s.extracting,
		Progress:     Progress{Filled: filled, Total: total},
		Issues:       issues,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
}

func (s *Session) touch() { s.updatedAt = time.Now().UTC() }

func (s *Session) complete(steps ...models.WorkflowStep) {
	for _, st := range steps {
		if !slices.Contains(s.completed, st) {
			s.completed = append(s.completed, st)
		}
	}
}

func (s *Session) requireTemplate() error {
	if s.content == "" && s.templateID == "" {
		return fmt.Errorf("%w: nenhum modelo selecionado", apperr.ErrInvalidInput)
	}
	return nil
}

// SelectTemplate starts the session from a stored template. Its variables
// are reconciled against its content so the two always agree.
func (s *Session) SelectTemplate(t models.Template) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templateID = t.ID
	s.templateName = t.Name
	s.content = t.Content
	s.vars = variable.Rescan(t.Variables, t.Content)
	s.selected = ""
	s.complete(models.StepSelectTemplate)
	s.step = models.StepUploadDocuments
	s.touch()
	return s.snapshotLocked()
}

// UploadTemplate starts the session from raw markup and detects its variables.
func (s *Session) UploadTemplate(name, content string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templateID = ""
	s.templateName = strings.TrimSpace(name)
	s.content = content
	s.vars = variable.Detect(content, nil)
	s.selected = ""
	s.complete(models.StepUploadTemplate)
	s.step = models.StepUploadDocuments
	s.touch()
	return s.snapshotLocked()
}

// DetectedNotice is the confirmation shown after a template upload.
func DetectedNotice(n int) string {
	return fmt.Sprintf("%d variáveis detectadas no modelo", n)
}

// EditContent replaces the working content and reconciles variables:
// surviving placeholders keep their id and value.
func (s *Session) EditContent(content string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireTemplate(); err != nil {
		return Snapshot{}, err
	}
	s.content = content
	s.vars = variable.Rescan(s.vars, content)
	if s.selected != "" && !s.hasVariable(s.selected) {
		s.selected = ""
	}
	s.touch()
	return s.snapshotLocked(), nil
}

func (s *Session) hasVariable(id string) bool {
	return slices.ContainsFunc(s.vars, func(v models.Variable) bool { return v.ID == id })
}

// AddDocument validates and stores an uploaded source document.
func (s *Session) AddDocument(name, declaredType, slot string, data []byte) (models.SourceDocument, error) {
	mime, ext, pages, err := checkDocument(name, declaredType, data, s.maxBytes)
	if err != nil {
		return models.SourceDocument{}, err
	}
	doc := models.SourceDocument{
		ID:         variable.NewID(),
		Name:       name,
		Slot:       slot,
		MIMEType:   mime,
		Size:       int64(len(data)),
		Pages:      pages,
		Status:     models.DocumentPending,
		UploadedAt: time.Now().UTC(),
	}
	doc.StoredPath = s.id + "/" + doc.ID + ext
	if err := s.uploads.Write(doc.StoredPath, data); err != nil {
		return models.SourceDocument{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = s.uploads.Delete(doc.StoredPath)
		return models.SourceDocument{}, apperr.ErrNotFound
	}
	s.docs = append(s.docs, doc)
	s.touch()
	return doc, nil
}

// RemoveDocument drops an uploaded document. Documents cannot be removed
// while an extraction is running.
func (s *Session) RemoveDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extracting {
		return fmt.Errorf("%w: extração em andamento", apperr.ErrConflict)
	}
	i := slices.IndexFunc(s.docs, func(d models.SourceDocument) bool { return d.ID == id })
	if i < 0 {
		return apperr.ErrNotFound
	}
	if err := s.uploads.Delete(s.docs[i].StoredPath); err != nil {
		s.logger.Warn("remove document file failed",
			slog.String("session", s.id), slog.String("error", err.Error()))
	}
	s.docs = slices.Delete(s.docs, i, i+1)
	s.touch()
	return nil
}

// Extract sends the session's documents to client and merges the results.
// Only one extraction may run at a time. A failed call is not an error: the
// documents are marked error and the outcome carries FailureNotice so the
// user can fill the fields by hand. Values entered manually are never
// overwritten.
func (s *Session) Extract(ctx context.Context, client extraction.Client) (Outcome, error) {
	s.mu.Lock()
	if err := s.requireTemplate(); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	if s.extracting {
		s.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: extração em andamento", apperr.ErrConflict)
	}
	if len(s.docs) == 0 {
		s.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: envie ao menos um documento", apperr.ErrInvalidInput)
	}
	s.complete(models.StepUploadDocuments)
	s.step = models.StepReview
	if len(s.vars) == 0 {
		s.touch()
		s.mu.Unlock()
		return Outcome{}, nil
	}
	s.extracting = true
	for i := range s.docs {
		s.docs[i].Status = models.DocumentProcessing
	}
	docs := slices.Clone(s.docs)
	vars := models.CloneVariables(s.vars)
	s.touch()
	s.mu.Unlock()

	results, err := s.runExtraction(ctx, client, vars, docs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracting = false
	s.touch()
	if s.closed {
		return Outcome{}, apperr.ErrNotFound
	}
	status := models.DocumentExtracted
	if err != nil {
		status = models.DocumentError
	}
	for i := range s.docs {
		if s.docs[i].Status == models.DocumentProcessing {
			s.docs[i].Status = status
		}
	}
	if err != nil {
		s.logger.Warn("extraction failed",
			slog.String("session", s.id), slog.String("error", err.Error()))
		return Outcome{Failed: true, Notice: FailureNotice}, nil
	}

	before := models.CloneVariables(s.vars)
	s.vars = variable.Merge(s.vars, results, variable.PreserveManual)
	applied := 0
	for i := range s.vars {
		if s.vars[i].StringValue() != before[i].StringValue() || s.vars[i].Source != before[i].Source {
			applied++
		}
	}
	return Outcome{Applied: applied, Notice: ExtractedNotice}, nil
}

func (s *Session) runExtraction(ctx context.Context, client extraction.Client, vars []models.Variable, docs []models.SourceDocument) ([]models.ExtractionResult, error) {
	images := make([]string, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, d := range docs {
		g.Go(func() error {
			data, err := s.uploads.Read(d.StoredPath)
			if err != nil {
				return err
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			images[i] = dataURL(d.MIMEType, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: load documents: %v", apperr.ErrExtractionFailed, err)
	}
	return client.Extract(ctx, extraction.RequestFor(vars, images))
}

// SetValue stores a value typed by the user: confidence 1, source manual.
func (s *Session) SetValue(id, value string) (models.Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vars, ok := variable.Assign(s.vars, id, value)
	if !ok {
		return models.Variable{}, apperr.ErrNotFound
	}
	s.vars = vars
	s.touch()
	for _, v := range s.vars {
		if v.ID == id {
			return v.Clone(), nil
		}
	}
	return models.Variable{}, apperr.ErrNotFound
}

// Select highlights a variable in the preview. An empty id clears the selection.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && !s.hasVariable(id) {
		return apperr.ErrNotFound
	}
	s.selected = id
	return nil
}

// Preview renders the highlighted on-screen preview.
func (s *Session) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return render.PreviewSelected(s.content, s.vars, s.selected)
}

// Progress counts the filled variables.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	filled, total := variable.Progress(s.vars)
	return Progress{Filled: filled, Total: total}
}

// Issues lists what still blocks a clean export.
func (s *Session) Issues() []variable.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return variable.Check(s.vars)
}

// Export formats.
const (
	FormatHTML  = "html"
	FormatPrint = "print"
	FormatText  = "txt"
	FormatXLSX  = "xlsx"
)

// Formats lists the supported export formats.
var Formats = []string{FormatHTML, FormatPrint, FormatText, FormatXLSX}

// Rendered is an exported document ready to send.
type Rendered struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Export renders the document in format and marks the review and export
// steps complete.
func (s *Session) Export(format string) (Rendered, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireTemplate(); err != nil {
		return Rendered{}, err
	}

	title := s.templateName
	if title == "" {
		title = "Documento"
	}
	base := exportBaseName(title)
	markup := render.Export(s.content, s.vars)

	var out Rendered
	switch format {
	case FormatHTML, "":
		out = Rendered{ContentType: "text/html; charset=utf-8", Filename: base + ".html", Body: []byte(markup)}
	case FormatPrint:
		page, err := render.PrintDocument(title, markup)
		if err != nil {
			return Rendered{}, err
		}
		out = Rendered{ContentType: "text/html; charset=utf-8", Filename: base + ".html", Body: []byte(page)}
	case FormatText:
		out = Rendered{ContentType: "text/plain; charset=utf-8", Filename: base + ".txt", Body: []byte(render.PlainText(markup))}
	case FormatXLSX:
		book, err := render.FieldsWorkbook(title, s.vars)
		if err != nil {
			return Rendered{}, err
		}
		out = Rendered{
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Filename:    base + ".xlsx",
			Body:        book,
		}
	default:
		return Rendered{}, fmt.Errorf("%w: formato de exportação %q", apperr.ErrUnsupportedFormat, format)
	}
	s.complete(models.StepReview, models.StepExport)
	s.step = models.StepExport
	s.touch()
	return out, nil
}

func exportBaseName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == '"' || r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Back moves to the nearest earlier step the session has completed, or to
// select-template when none was. At the first step it reports false and the
// caller should reset the session.
func (s *Session) Back() (models.WorkflowStep, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(stepOrder, s.step)
	if i <= 0 {
		return s.step, false
	}
	s.step = models.StepSelectTemplate
	for j := i - 1; j > 0; j-- {
		if slices.Contains(s.completed, stepOrder[j]) {
			s.step = stepOrder[j]
			break
		}
	}
	s.touch()
	return s.step, true
}

// GoTo jumps to a step already reached.
func (s *Session) GoTo(step models.WorkflowStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(stepOrder, step) {
		return fmt.Errorf("%w: etapa %q", apperr.ErrInvalidInput, step)
	}
	if step != s.step && !slices.Contains(s.completed, step) {
		return fmt.Errorf("%w: etapa %q ainda não alcançada", apperr.ErrConflict, step)
	}
	s.step = step
	s.touch()
	return nil
}

// close marks the session deleted; an extraction still in flight discards
// its result.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extracting
}
