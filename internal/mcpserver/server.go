// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the template catalog and placeholder engine to LLM clients over
// stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/placeholder"
	"github.com/starford/minuta/internal/render"
	"github.com/starford/minuta/internal/templateservice"
	"github.com/starford/minuta/internal/variable"
)

const contractURI = "minuta://placeholder-syntax"

// Server wraps the MCP server with the template tools.
type Server struct {
	mcp       *server.MCPServer
	templates *templateservice.Service
}

// New creates a new MCP server with all tools registered.
func New(templates *templateservice.Service, version string) *Server {
	s := &Server{templates: templates}

	s.mcp = server.NewMCPServer(
		"Minuta",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List document templates, newest first. Built-in templates are listed when none are stored."),
		mcp.WithString("category", mcp.Description("Optional category: contratos, procuracoes, requerimentos, declaracoes, diversos or outros")),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("get_template",
		mcp.WithDescription("Read a template's HTML content and its variables."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template id")),
	), s.getTemplate)

	s.mcp.AddTool(mcp.NewTool("search_templates",
		mcp.WithDescription("Search templates by name and text, accents ignored."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTemplates)

	s.mcp.AddTool(mcp.NewTool("scan_placeholders",
		mcp.WithDescription("Detect the {{name}} and [name] placeholders of some content and classify them into variables."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Template markup")),
	), s.scanPlaceholders)

	s.mcp.AddTool(mcp.NewTool("create_template",
		mcp.WithDescription("Save a new template. Content MUST follow the placeholder contract; "+
			"read it first via get_placeholder_contract or the "+contractURI+" resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Template name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("HTML content with placeholders")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Template category")),
	), s.createTemplate)

	s.mcp.AddTool(mcp.NewTool("import_template",
		mcp.WithDescription("Import a .html, .md, .docx or .pdf file from an http(s) or base64 data URL as a new template."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:...;base64, URL")),
		mcp.WithString("filename", mcp.Description("File name; its extension selects the converter")),
		mcp.WithString("category", mcp.Description("Category, overriding the one declared by the file")),
	), s.importTemplate)

	s.mcp.AddTool(mcp.NewTool("render_document",
		mcp.WithDescription("Fill a template with values and return the document. "+
			"Unfilled placeholders are shown as {{Label}}."),
		mcp.WithString("id", mcp.Description("Template id (or pass content)")),
		mcp.WithString("content", mcp.Description("Template markup, used when id is empty")),
		mcp.WithObject("values", mcp.Description("Values keyed by placeholder name, e.g. {\"nome\": \"Maria\"}")),
		mcp.WithString("format", mcp.Description("html (default), text or preview"), mcp.Enum("html", "text", "preview")),
	), s.renderDocument)

	s.mcp.AddTool(mcp.NewTool("get_placeholder_contract",
		mcp.WithDescription("Returns the placeholder syntax contract. "+
			"Call this before creating templates to ensure correct structure."),
	), s.getPlaceholderContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Placeholder Syntax Contract",
			mcp.WithResourceDescription("How template placeholders are written, named, typed and rendered."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func stringArg(req mcp.CallToolRequest, key string) string {
	v, _ := req.GetArguments()[key].(string)
	return v
}

func (s *Server) listTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var category models.Category
	if raw := stringArg(req, "category"); raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		category = c
	}
	ts, err := s.templates.List(ctx, category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]models.TemplateSummary, len(ts))
	for i, t := range ts {
		out[i] = t.Summary()
	}
	return jsonResult(out), nil
}

func (s *Server) getTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.templates.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(t), nil
}

func (s *Server) searchTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.templates.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits), nil
}

func (s *Server) scanPlaceholders(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"placeholders": placeholder.Scan(content),
		"variables":    variable.Detect(content, nil),
	}), nil
}

func (s *Server) createTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := models.ParseCategory(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t, err := s.templates.Create(ctx, templateservice.CreateInput{Name: name, Content: content, Category: category})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (id %s)", templateservice.CreatedNotice(t), t.ID)), nil
}

func (s *Server) renderDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := stringArg(req, "content")
	var vars []models.Variable
	if id := stringArg(req, "id"); id != "" {
		t, err := s.templates.Get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		content = t.Content
		vars = variable.Rescan(t.Variables, content)
	} else if content != "" {
		vars = variable.Detect(content, nil)
	} else {
		return mcp.NewToolResultError("id or content is required"), nil
	}

	values, err := valuesArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for i := range vars {
		if v, ok := values[vars[i].Name]; ok {
			vars, _ = variable.Assign(vars, vars[i].ID, v)
		}
	}

	switch stringArg(req, "format") {
	case "", "html":
		return mcp.NewToolResultText(render.Export(content, vars)), nil
	case "text":
		return mcp.NewToolResultText(render.PlainText(render.Export(content, vars))), nil
	case "preview":
		return mcp.NewToolResultText(render.Preview(content, vars)), nil
	default:
		return mcp.NewToolResultError("format must be html, text or preview"), nil
	}
}

// valuesArg reads the values argument, given either as an object or as a
// JSON-encoded string. Keys are canonicalised like placeholders.
func valuesArg(req mcp.CallToolRequest) (map[string]string, error) {
	raw, ok := req.GetArguments()["values"]
	if !ok || raw == nil {
		return nil, nil
	}
	var obj map[string]any
	switch v := raw.(type) {
	case map[string]any:
		obj = v
	case string:
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, fmt.Errorf("values: %w", err)
		}
	default:
		return nil, fmt.Errorf("values must be an object")
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[placeholder.Canonical(k)] = val
		case nil:
		default:
			out[placeholder.Canonical(k)] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func (s *Server) getPlaceholderContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PlaceholderContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     PlaceholderContract,
		},
	}, nil
}
