// Package variable turns scanned placeholder names into typed variables and
// keeps variable lists consistent across edits and extraction passes.
package variable

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/placeholder"
)

// displayNames maps well-known canonical names to their Portuguese labels.
var displayNames = map[string]string{
	"nome":            "Nome Completo",
	"nome_completo":   "Nome Completo",
	"nome_comprador":  "Nome do Comprador",
	"nome_vendedor":   "Nome do Vendedor",
	"cpf":             "CPF",
	"cpf_comprador":   "CPF do Comprador",
	"cpf_vendedor":    "CPF do Vendedor",
	"rg":              "RG",
	"orgao_emissor":   "Órgão Emissor",
	"endereco":        "Endereço",
	"bairro":          "Bairro",
	"cidade":          "Cidade",
	"estado":          "Estado",
	"cep":             "CEP",
	"data_nascimento": "Data de Nascimento",
	"nacionalidade":   "Nacionalidade",
	"estado_civil":    "Estado Civil",
	"profissao":       "Profissão",
	"validade_cnh":    "Validade CNH",
	"numero_cnh":      "Número CNH",
	"telefone":        "Telefone",
	"email":           "E-mail",
	"finalidade":      "Finalidade",
	"cartorio":        "Cartório",
	"valor":           "Valor",
}

// Classification is what the classifier derives from a canonical name.
type Classification struct {
	DisplayName string
	Type        models.VariableType
	Required    bool
}

// Classify derives the label and semantic type of a canonical placeholder name.
func Classify(name string) Classification {
	return Classification{
		DisplayName: DisplayName(name),
		Type:        InferType(name),
		Required:    true,
	}
}

// DisplayName returns the dictionary label for name, or the name with
// underscores turned into spaces and each word capitalised.
func DisplayName(name string) string {
	if label, ok := displayNames[name]; ok {
		return label
	}
	words := strings.Join(strings.FieldsFunc(name, func(r rune) bool { return r == '_' }), " ")
	return cases.Title(language.BrazilianPortuguese).String(words)
}

// InferType picks the type by substring: cpf, then rg, then data, else text.
func InferType(name string) models.VariableType {
	switch {
	case strings.Contains(name, "cpf"):
		return models.TypeCPF
	case strings.Contains(name, "rg"):
		return models.TypeRG
	case strings.Contains(name, "data"):
		return models.TypeDate
	default:
		return models.TypeText
	}
}

// IDFunc generates variable identifiers.
type IDFunc func() string

// NewID is the default IDFunc.
func NewID() string { return uuid.NewString() }

// Detect scans content and returns one classified variable per distinct
// placeholder, in first-occurrence order. A nil ids uses NewID.
func Detect(content string, ids IDFunc) []models.Variable {
	if ids == nil {
		ids = NewID
	}
	names := placeholder.Scan(content)
	out := make([]models.Variable, 0, len(names))
	for _, n := range names {
		c := Classify(n)
		out = append(out, models.Variable{
			ID:          ids(),
			Name:        n,
			DisplayName: c.DisplayName,
			Type:        c.Type,
			Required:    c.Required,
		})
	}
	return out
}
