package mcpserver

// PlaceholderContract describes how template placeholders are written and
// how they turn into variables. Read it before creating templates.
const PlaceholderContract = `# Minuta Placeholder Syntax

Templates are HTML documents (Portuguese legal register) whose variable
parts are written as placeholders.

## Syntax

- ` + "`{{nome_completo}}`" + ` double braces, or
- ` + "`[nome_completo]`" + ` square brackets.

Both forms may be mixed in one template; they name the same variable when
their canonical names match.

## Canonical names

The text between the delimiters is trimmed, lower-cased, and every run of
whitespace becomes a single ` + "`_`" + `:

| written                 | canonical       |
|-------------------------|-----------------|
| ` + "`{{Nome Completo}}`" + `     | ` + "`nome_completo`" + ` |
| ` + "`[ CPF ]`" + `               | ` + "`cpf`" + `           |
| ` + "`{{data   atual}}`" + `      | ` + "`data_atual`" + `    |

Each distinct canonical name is one variable, listed in order of first
appearance. Blank placeholders (` + "`{{ }}`" + `, ` + "`[]`" + `) are ignored.

## Types

The type is inferred from the name, first match wins:

1. contains ` + "`cpf`" + ` → cpf (11 digits, check digits validated)
2. contains ` + "`rg`" + ` → rg
3. contains ` + "`data`" + ` → date (DD/MM/AAAA)
4. anything else → text

Well-known names get Portuguese labels (` + "`nome`" + ` → "Nome Completo",
` + "`endereco`" + ` → "Endereço", ` + "`cep`" + ` → "CEP", ...); others are title-cased
with underscores as spaces.

## Rendering

- Preview wraps every known placeholder in a span: ` + "`filled-variable`" + ` with
  the value, or ` + "`empty-variable`" + ` with ` + "`{{Label}}`" + `.
- Export replaces each placeholder with its value, or ` + "`{{Label}}`" + ` when empty.
  Values are HTML-escaped.

## Rules

1. Prefer snake_case names in Portuguese without accents (` + "`endereco`" + `, not ` + "`endereço`" + `).
2. Square brackets are placeholders unless they enclose a ` + "`{{...}}`" + ` placeholder, in which
   case they are kept as ordinary text around it. Avoid brackets in other prose.
3. Do not put HTML tags inside a placeholder.
4. Categories: contratos, procuracoes, requerimentos, declaracoes, diversos, outros.

## Example

` + "```" + `html
<h1 style="text-align: center;">PROCURAÇÃO</h1>
<p>Eu, {{nome}}, inscrito(a) no CPF sob o nº [cpf], nomeio {{nome_procurador}}
como meu procurador.</p>
<p>{{cidade}}, {{data_atual}}</p>
` + "```" + `
`
