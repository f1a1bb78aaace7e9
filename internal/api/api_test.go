package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/extraction"
	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/sse"
	"github.com/starford/minuta/internal/templateservice"
	"github.com/starford/minuta/internal/testutil"
	"github.com/starford/minuta/internal/workflow"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubExtractor struct {
	results []models.ExtractionResult
	err     error
}

func (s stubExtractor) Extract(context.Context, extraction.Request) ([]models.ExtractionResult, error) {
	return s.results, s.err
}

type env struct {
	router   http.Handler
	sessions *workflow.Manager
	broker   *sse.Broker
}

// testEnv sets up a temp library, SQLite DB, services and router.
// A non-empty token enables bearer auth.
func testEnv(t *testing.T, token string, extractor extraction.Client) env {
	t.Helper()
	_, lib := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	svc := templateservice.NewService(db, lib, testutil.Logger())
	sessions := workflow.NewManager(testutil.TestUploads(t), 0, testutil.Logger())
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)

	if extractor == nil {
		extractor = extraction.Disabled{}
	}
	return env{
		router:   NewRouter(svc, sessions, extractor, broker, token != "", token),
		sessions: sessions,
		broker:   broker,
	}
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func uploadFile(t *testing.T, h http.Handler, target, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createTemplate(t *testing.T, h http.Handler, name, content string, category models.Category) *models.Template {
	t.Helper()
	w := do(t, h, http.MethodPost, "/templates", CreateTemplateRequest{Name: name, Content: content, Category: category})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[TemplateResponse](t, w).Template
}

func TestListTemplates_FallsBackToCatalog(t *testing.T) {
	e := testEnv(t, "", nil)

	w := do(t, e.router, http.MethodGet, "/templates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[TemplateListResponse](t, w)
	if resp.Total != 5 {
		t.Fatalf("total = %d, want 5 built-in templates", resp.Total)
	}
	for _, s := range resp.Templates {
		if !s.BuiltIn {
			t.Errorf("%s: expected built-in", s.ID)
		}
	}

	w = do(t, e.router, http.MethodGet, "/templates?category=requerimentos", nil)
	if got := decode[TemplateListResponse](t, w).Total; got != 2 {
		t.Errorf("requerimentos = %d, want 2", got)
	}

	w = do(t, e.router, http.MethodGet, "/templates?category=nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad category = %d, want 400", w.Code)
	}
}

func TestCreateAndGetTemplate(t *testing.T) {
	e := testEnv(t, "", nil)

	w := do(t, e.router, http.MethodPost, "/templates", CreateTemplateRequest{
		Name:     "Declaração de Pobreza",
		Content:  "<p>Eu, {{nome}}, CPF [cpf], declaro...</p>",
		Category: models.CategoryDeclaracoes,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[TemplateResponse](t, w)
	if resp.Notice != `Modelo "Declaração de Pobreza" criado com 2 campos detectados` {
		t.Errorf("notice = %q", resp.Notice)
	}

	w = do(t, e.router, http.MethodGet, "/templates/"+resp.Template.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != `"`+resp.Template.Checksum+`"` {
		t.Errorf("ETag = %q", etag)
	}
	got := decode[models.Template](t, w)
	if len(got.Variables) != 2 || got.Variables[1].Type != models.TypeCPF {
		t.Errorf("variables = %+v", got.Variables)
	}

	w = do(t, e.router, http.MethodGet, "/templates", nil)
	if total := decode[TemplateListResponse](t, w).Total; total != 1 {
		t.Errorf("list total = %d, want 1 stored template", total)
	}
}

func TestCreateTemplate_Invalid(t *testing.T) {
	e := testEnv(t, "", nil)

	w := do(t, e.router, http.MethodPost, "/templates", map[string]string{"name": "", "content": "x", "category": "contratos"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing name = %d, want 400", w.Code)
	}
	w = do(t, e.router, http.MethodPost, "/templates", map[string]string{"name": "x", "content": "x", "category": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown category = %d, want 400", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/templates", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", rec.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	e := testEnv(t, "", nil)
	created := createTemplate(t, e.router, "Contrato", "<p>{{locador}}</p>", models.CategoryContratos)

	content := "<p>{{locador}} e {{locatario}}</p>"
	body, _ := json.Marshal(UpdateTemplateRequest{Content: &content})
	req := httptest.NewRequest(http.MethodPut, "/templates/"+created.ID, bytes.NewReader(body))
	req.Header.Set("If-Match", `"`+created.Checksum+`"`)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	updated := decode[models.Template](t, w)
	if len(updated.Variables) != 2 || updated.Variables[0].ID != created.Variables[0].ID {
		t.Errorf("variables not reconciled: %+v", updated.Variables)
	}

	req = httptest.NewRequest(http.MethodPut, "/templates/"+created.ID, bytes.NewReader(body))
	req.Header.Set("If-Match", created.Checksum)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateTemplate_NotFound(t *testing.T) {
	e := testEnv(t, "", nil)
	name := "x"
	w := do(t, e.router, http.MethodPut, "/templates/missing", UpdateTemplateRequest{Name: &name})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBuiltInTemplatesAreReadOnly(t *testing.T) {
	e := testEnv(t, "", nil)
	name := "x"
	w := do(t, e.router, http.MethodPut, "/templates/req-segunda-via", UpdateTemplateRequest{Name: &name})
	if w.Code != http.StatusConflict {
		t.Errorf("update built-in = %d, want 409", w.Code)
	}
	w = do(t, e.router, http.MethodDelete, "/templates/req-segunda-via", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("delete built-in = %d, want 409", w.Code)
	}
	w = do(t, e.router, http.MethodGet, "/templates/req-segunda-via", nil)
	if w.Code != http.StatusOK {
		t.Errorf("get built-in = %d, want 200", w.Code)
	}
}

func TestDeleteTemplate(t *testing.T) {
	e := testEnv(t, "", nil)
	created := createTemplate(t, e.router, "Temporário", "<p>{{nome}}</p>", models.CategoryOutros)

	w := do(t, e.router, http.MethodDelete, "/templates/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = do(t, e.router, http.MethodDelete, "/templates/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestTemplateEventsPublished(t *testing.T) {
	e := testEnv(t, "", nil)
	ch := e.broker.Subscribe()
	defer e.broker.Unsubscribe(ch)

	created := createTemplate(t, e.router, "Evento", "<p>{{nome}}</p>", models.CategoryOutros)

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: template.created") || !strings.Contains(string(msg), created.ID) {
			t.Errorf("unexpected event %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestImportTemplate(t *testing.T) {
	e := testEnv(t, "", nil)
	src := "---\nname: Procuração Simples\n---\nOutorgante: {{nome}}, CPF {{cpf}}.\n"

	w := uploadFile(t, e.router, "/templates/import", "procuracao.md", []byte(src), map[string]string{"category": "procuracoes"})
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[TemplateResponse](t, w).Template
	if got.Name != "Procuração Simples" || got.Category != models.CategoryProcuracoes {
		t.Errorf("imported %q in %q", got.Name, got.Category)
	}
	if len(got.Variables) != 2 {
		t.Errorf("variables = %d, want 2", len(got.Variables))
	}
}

func TestImportTemplate_Unsupported(t *testing.T) {
	e := testEnv(t, "", nil)
	w := uploadFile(t, e.router, "/templates/import", "planilha.xlsx", []byte("x"), nil)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Formato não suportado") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestImportTemplate_MissingFile(t *testing.T) {
	e := testEnv(t, "", nil)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("category", "contratos")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/templates/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := testEnv(t, "", nil)
	createTemplate(t, e.router, "Contrato de Comodato", "<p>Comodante {{nome}}</p>", models.CategoryContratos)

	w := do(t, e.router, http.MethodGet, "/search?q=comodato", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	results := decode[SearchResponse](t, w).Results
	if len(results) == 0 || results[0].Name != "Contrato de Comodato" {
		t.Errorf("results = %+v", results)
	}

	w = do(t, e.router, http.MethodGet, "/search?q=locacao", nil)
	results = decode[SearchResponse](t, w).Results
	if len(results) == 0 || !results[0].BuiltIn {
		t.Errorf("expected built-in hit, got %+v", results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	e := testEnv(t, "", nil)
	w := do(t, e.router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestScanEndpoint(t *testing.T) {
	e := testEnv(t, "", nil)
	w := do(t, e.router, http.MethodPost, "/scan", ScanRequest{Content: "{{Nome Completo}} [cpf] {{nome completo}}"})
	if w.Code != http.StatusOK {
		t.Fatalf("scan = %d", w.Code)
	}
	resp := decode[ScanResponse](t, w)
	if strings.Join(resp.Placeholders, ",") != "nome_completo,cpf" {
		t.Errorf("placeholders = %v", resp.Placeholders)
	}
	if len(resp.Variables) != 2 || resp.Variables[0].DisplayName != "Nome Completo" {
		t.Errorf("variables = %+v", resp.Variables)
	}

	w = do(t, e.router, http.MethodPost, "/scan", ScanRequest{Content: "sem campos"})
	if !strings.Contains(w.Body.String(), `"placeholders":[]`) {
		t.Errorf("empty scan body = %s", w.Body.String())
	}
}

func TestPreviewTemplate(t *testing.T) {
	e := testEnv(t, "", nil)
	w := do(t, e.router, http.MethodGet, "/templates/decl-residencia/preview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), `class="empty-variable"`) {
		t.Errorf("preview missing variable spans")
	}
}

func TestAuthMiddleware(t *testing.T) {
	e := testEnv(t, "secret", nil)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"scheme", "Basic secret", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/templates", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testEnv(t, "secret", nil)
	w := do(t, e.router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testEnv(t, "tok", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	e := testEnv(t, "tok", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d", w.Code)
	}

	// Only reads accept the query form.
	w = do(t, e.router, http.MethodPost, "/sessions?access_token=tok", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}

func newSession(t *testing.T, h http.Handler) workflow.Snapshot {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session = %d", w.Code)
	}
	return decode[SessionResponse](t, w).Session
}

func TestSessionFlow(t *testing.T) {
	e := testEnv(t, "", stubExtractor{results: []models.ExtractionResult{
		{Name: "nome_declarante", Value: "Maria das Dores", Confidence: 0.95},
		{Name: "cpf", Value: "529.982.247-25", Confidence: 0.9},
	}})
	sess := newSession(t, e.router)
	base := "/sessions/" + sess.ID

	w := do(t, e.router, http.MethodPost, base+"/template", SessionTemplateRequest{TemplateID: "decl-residencia"})
	if w.Code != http.StatusOK {
		t.Fatalf("select template = %d, body = %s", w.Code, w.Body.String())
	}
	snap := decode[SessionResponse](t, w).Session
	if snap.Step != models.StepUploadDocuments || len(snap.Variables) == 0 {
		t.Fatalf("after select: step %s, %d variables", snap.Step, len(snap.Variables))
	}

	w = uploadFile(t, e.router, base+"/documents", "rg.png", pngHeader, map[string]string{"slot": "rg-cnh"})
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	docs := decode[DocumentsResponse](t, w).Documents
	if len(docs) != 1 || docs[0].Slot != "rg-cnh" || docs[0].MIMEType != "image/png" {
		t.Errorf("documents = %+v", docs)
	}

	w = do(t, e.router, http.MethodPost, base+"/extract", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("extract = %d, body = %s", w.Code, w.Body.String())
	}
	ext := decode[ExtractResponse](t, w)
	if ext.Outcome.Failed || ext.Outcome.Applied != 2 {
		t.Errorf("outcome = %+v", ext.Outcome)
	}
	if ext.Session.Step != models.StepReview {
		t.Errorf("step = %s, want review", ext.Session.Step)
	}

	var telefoneID string
	for _, v := range ext.Session.Variables {
		if v.Name == "telefone" {
			telefoneID = v.ID
		}
	}
	if telefoneID == "" {
		t.Fatal("telefone variable missing")
	}
	w = do(t, e.router, http.MethodPut, base+"/variables/"+telefoneID, ValueRequest{Value: "(11) 98765-4321"})
	if w.Code != http.StatusOK {
		t.Fatalf("set value = %d", w.Code)
	}
	val := decode[ValueResponse](t, w)
	if val.Variable.Source != models.SourceManual || val.Progress.Filled != 3 {
		t.Errorf("value response = %+v", val)
	}

	w = do(t, e.router, http.MethodPut, base+"/selection", SelectRequest{VariableID: telefoneID})
	if w.Code != http.StatusNoContent {
		t.Errorf("select = %d", w.Code)
	}
	w = do(t, e.router, http.MethodGet, base+"/preview", nil)
	if !strings.Contains(w.Body.String(), "filled-variable selected") {
		t.Errorf("preview missing selection")
	}

	w = do(t, e.router, http.MethodGet, base+"/export?format=txt", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Maria das Dores") || strings.Contains(w.Body.String(), "<span") {
		t.Errorf("export body = %s", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	w = do(t, e.router, http.MethodGet, base+"/export?format=docx", nil)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("docx export = %d, want 415", w.Code)
	}

	w = do(t, e.router, http.MethodPut, base+"/step", StepRequest{Step: models.StepReview})
	if w.Code != http.StatusOK {
		t.Errorf("goto review = %d", w.Code)
	}

	w = do(t, e.router, http.MethodDelete, base, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete session = %d", w.Code)
	}
	w = do(t, e.router, http.MethodGet, base, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted session = %d, want 404", w.Code)
	}
}

func TestSessionExtractFailureIsRecovered(t *testing.T) {
	e := testEnv(t, "", stubExtractor{err: apperr.ErrExtractionFailed})
	sess := newSession(t, e.router)
	base := "/sessions/" + sess.ID

	do(t, e.router, http.MethodPost, base+"/template", SessionTemplateRequest{Name: "Minuta", Content: "<p>{{nome}}</p>"})
	uploadFile(t, e.router, base+"/documents", "rg.png", pngHeader, nil)

	w := do(t, e.router, http.MethodPost, base+"/extract", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("extract = %d", w.Code)
	}
	ext := decode[ExtractResponse](t, w)
	if !ext.Outcome.Failed || ext.Outcome.Notice != workflow.FailureNotice {
		t.Errorf("outcome = %+v", ext.Outcome)
	}
	if ext.Session.Documents[0].Status != models.DocumentError {
		t.Errorf("document status = %s", ext.Session.Documents[0].Status)
	}
}

func TestSessionUploadTemplateNotice(t *testing.T) {
	e := testEnv(t, "", nil)
	sess := newSession(t, e.router)

	w := do(t, e.router, http.MethodPost, "/sessions/"+sess.ID+"/template", SessionTemplateRequest{Content: "<p>{{a}} {{b}} [c]</p>"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if n := decode[SessionResponse](t, w).Notice; n != "3 variáveis detectadas no modelo" {
		t.Errorf("notice = %q", n)
	}

	w = do(t, e.router, http.MethodPost, "/sessions/"+sess.ID+"/template", SessionTemplateRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty request = %d, want 400", w.Code)
	}
	w = do(t, e.router, http.MethodPost, "/sessions/"+sess.ID+"/template", SessionTemplateRequest{TemplateID: "missing"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown template = %d, want 404", w.Code)
	}
}

func TestSessionDocuments(t *testing.T) {
	e := testEnv(t, "", nil)
	sess := newSession(t, e.router)
	base := "/sessions/" + sess.ID

	w := uploadFile(t, e.router, base+"/documents", "notas.txt", []byte("texto simples"), nil)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("txt upload = %d, want 415", w.Code)
	}

	w = uploadFile(t, e.router, base+"/documents", "rg.png", pngHeader, nil)
	doc := decode[DocumentsResponse](t, w).Documents[0]

	w = do(t, e.router, http.MethodDelete, base+"/documents/"+doc.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete document = %d", w.Code)
	}
	w = do(t, e.router, http.MethodDelete, base+"/documents/"+doc.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}

	w = do(t, e.router, http.MethodPost, base+"/extract", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("extract without template = %d, want 400", w.Code)
	}
}

func TestSessionBackResets(t *testing.T) {
	e := testEnv(t, "", nil)
	sess := newSession(t, e.router)

	w := do(t, e.router, http.MethodPost, "/sessions/"+sess.ID+"/back", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("back = %d", w.Code)
	}
	if !decode[BackResponse](t, w).Reset {
		t.Error("expected reset at first step")
	}
	if e.sessions.Len() != 0 {
		t.Errorf("sessions = %d, want 0", e.sessions.Len())
	}
}

func TestSessionNotFound(t *testing.T) {
	e := testEnv(t, "", nil)
	for _, path := range []string{"/sessions/nope", "/sessions/nope/preview", "/sessions/nope/export"} {
		w := do(t, e.router, http.MethodGet, path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", path, w.Code)
		}
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"rg.png":           "rg.png",
		"../../etc/passwd": "passwd",
		`C:\docs\cnh.pdf`:  "cnh.pdf",
	}
	for in, want := range cases {
		got, err := safeName(in)
		if err != nil || got != want {
			t.Errorf("safeName(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "..", ".hidden"} {
		if _, err := safeName(bad); err == nil {
			t.Errorf("safeName(%q) should fail", bad)
		}
	}
}
