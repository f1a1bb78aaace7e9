package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/minuta/internal/models"
)

const resultsSchemaJSON = `{
  "type": "object",
  "required": ["results"],
  "properties": {
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "value"],
        "properties": {
          "name": {"type": "string"},
          "value": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	resultsSchema  *jsonschema.Schema
	errSchemaSetup error

	// Models often wrap the object in prose or a code fence.
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("results.json", bytes.NewReader([]byte(resultsSchemaJSON))); err != nil {
			errSchemaSetup = fmt.Errorf("add schema: %w", err)
			return
		}
		resultsSchema, errSchemaSetup = compiler.Compile("results.json")
	})
	return resultsSchema, errSchemaSetup
}

// CutJSONObject returns the outermost {...} span of s.
func CutJSONObject(s string) (string, bool) {
	m := jsonObjectRe.FindString(s)
	return m, m != ""
}

// ParseResults validates raw against the results schema and decodes it.
func ParseResults(raw []byte) ([]models.ExtractionResult, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("results do not match schema: %w", err)
	}
	var out struct {
		Results []models.ExtractionResult `json:"results"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return out.Results, nil
}
