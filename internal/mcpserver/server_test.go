package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/templateservice"
	"github.com/starford/minuta/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, lib := testutil.TestLibrary(t)
	svc := templateservice.NewService(testutil.TestDB(t), lib, testutil.Logger())
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_templates":
		result, err = srv.listTemplates(ctx, req)
	case "get_template":
		result, err = srv.getTemplate(ctx, req)
	case "search_templates":
		result, err = srv.searchTemplates(ctx, req)
	case "scan_placeholders":
		result, err = srv.scanPlaceholders(ctx, req)
	case "create_template":
		result, err = srv.createTemplate(ctx, req)
	case "import_template":
		result, err = srv.importTemplate(ctx, req)
	case "render_document":
		result, err = srv.renderDocument(ctx, req)
	case "get_placeholder_contract":
		result, err = srv.getPlaceholderContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListTemplatesBuiltIn(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_templates", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("list error: %s", resultText(r))
	}
	var got []models.TemplateSummary
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || !got[0].BuiltIn {
		t.Errorf("expected built-in templates, got %+v", got)
	}

	r = callTool(t, srv, "list_templates", map[string]interface{}{"category": "receitas"})
	if !r.IsError {
		t.Error("expected error for unknown category")
	}
}

func TestCreateAndGetTemplate(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_template", map[string]interface{}{
		"name":     "Recibo",
		"content":  "<p>Recebi de {{nome}}, CPF [cpf], em {{data}}.</p>",
		"category": "diversos",
	})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("create error: %s", text)
	}
	if !strings.Contains(text, `Modelo "Recibo" criado com 3 campos detectados`) {
		t.Errorf("create result = %q", text)
	}
	id := strings.TrimSuffix(text[strings.LastIndex(text, "id ")+3:], ")")

	r = callTool(t, srv, "get_template", map[string]interface{}{"id": id})
	var tpl models.Template
	if err := json.Unmarshal([]byte(resultText(r)), &tpl); err != nil {
		t.Fatal(err)
	}
	if tpl.Name != "Recibo" || len(tpl.Variables) != 3 {
		t.Errorf("template = %+v", tpl)
	}
	if tpl.Variables[1].Type != models.TypeCPF {
		t.Errorf("cpf type = %q", tpl.Variables[1].Type)
	}
}

func TestCreateTemplateInvalidCategory(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_template", map[string]interface{}{
		"name":     "X",
		"content":  "<p>{{a}}</p>",
		"category": "nada",
	})
	if !r.IsError {
		t.Error("expected error for invalid category")
	}
}

func TestGetTemplateMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_template", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing template")
	}
}

func TestSearchTemplates(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "search_templates", map[string]interface{}{"query": "procuracao"})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "proc-ad-judicia") {
		t.Errorf("search result = %q", resultText(r))
	}
}

func TestScanPlaceholders(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "scan_placeholders", map[string]interface{}{
		"content": "{{Nome Completo}} e [nome completo] e {{cpf}}",
	})
	var got struct {
		Placeholders []string          `json:"placeholders"`
		Variables    []models.Variable `json:"variables"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Variables) != 2 {
		t.Fatalf("variables = %+v", got.Variables)
	}
	if got.Variables[0].Name != "nome_completo" {
		t.Errorf("first variable = %q", got.Variables[0].Name)
	}
}

func TestImportTemplateDataURL(t *testing.T) {
	srv := testServer(t)
	md := "---\ncategory: procuracoes\n---\nOutorgante {{nome}}, CPF {{cpf}}"
	url := "data:text/markdown;base64," + base64.StdEncoding.EncodeToString([]byte(md))

	r := callTool(t, srv, "import_template", map[string]interface{}{
		"url":      url,
		"filename": "Procuração Simples.md",
	})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("import error: %s", text)
	}
	if !strings.Contains(text, `"Procuração Simples"`) || !strings.Contains(text, "2 campos") {
		t.Errorf("import result = %q", text)
	}
}

func TestImportTemplateRejects(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"plain data uri", map[string]interface{}{"url": "data:text/html,<p>x</p>"}},
		{"ftp scheme", map[string]interface{}{"url": "ftp://example.com/a.html"}},
		{"loopback", map[string]interface{}{"url": "http://127.0.0.1/a.html"}},
		{"unsupported type", map[string]interface{}{
			"url":      "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("x")),
			"filename": "a.txt",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := callTool(t, srv, "import_template", tt.args); !r.IsError {
				t.Errorf("expected error, got %q", resultText(r))
			}
		})
	}
}

func TestRenderDocument(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "render_document", map[string]interface{}{
		"id":     "decl-residencia",
		"values": map[string]interface{}{"nome_declarante": "Maria <Silva>", "CPF": "123.456.789-09"},
	})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("render error: %s", text)
	}
	if !strings.Contains(text, "Maria &lt;Silva&gt;") {
		t.Errorf("value not escaped or missing: %q", text)
	}
	if !strings.Contains(text, "123.456.789-09") {
		t.Error("cpf value missing")
	}
	if !strings.Contains(text, "{{") {
		t.Error("unfilled placeholders should render as labels")
	}

	r = callTool(t, srv, "render_document", map[string]interface{}{
		"content": "<p>Olá {{nome}}</p>",
		"values":  `{"nome": "Ana"}`,
		"format":  "text",
	})
	if got := strings.TrimSpace(resultText(r)); got != "Olá Ana" {
		t.Errorf("text render = %q", got)
	}
}

func TestRenderDocumentErrors(t *testing.T) {
	srv := testServer(t)
	if r := callTool(t, srv, "render_document", map[string]interface{}{}); !r.IsError {
		t.Error("expected error without id or content")
	}
	if r := callTool(t, srv, "render_document", map[string]interface{}{"content": "x", "format": "pdf"}); !r.IsError {
		t.Error("expected error for unknown format")
	}
	if r := callTool(t, srv, "render_document", map[string]interface{}{"content": "x", "values": 3}); !r.IsError {
		t.Error("expected error for non-object values")
	}
}

func TestPlaceholderContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_placeholder_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Canonical names") {
		t.Error("contract missing canonical names section")
	}

	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
}
