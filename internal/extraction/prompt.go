package extraction

import (
	"fmt"
	"strings"
)

const promptHeader = `Você é um especialista em OCR e extração de dados de documentos brasileiros.
Analise as imagens de documentos fornecidas e extraia os seguintes campos:`

const promptRules = `INSTRUÇÕES:
- Extraia APENAS os campos listados acima
- Se um campo não for encontrado, retorne string vazia
- Para CPF, mantenha a formatação XXX.XXX.XXX-XX
- Para RG, mantenha a formatação original
- Para datas, use o formato DD/MM/AAAA
- Retorne APENAS um JSON válido no formato:
{
  "results": [
    { "name": "nome_do_campo", "value": "valor_extraido", "confidence": 0.95 }
  ]
}
- confidence deve ser um número entre 0 e 1 indicando sua certeza`

// BuildPrompt lists the requested fields and the output rules.
func BuildPrompt(vars []RequestedVariable) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")
	for _, v := range vars {
		fmt.Fprintf(&b, "- %q (%s)\n", v.Name, v.DisplayName)
	}
	b.WriteString("\n")
	b.WriteString(promptRules)
	return b.String()
}
