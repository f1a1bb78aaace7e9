package variable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/minuta/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		wantType    models.VariableType
		wantDisplay string
	}{
		{"cpf_comprador", models.TypeCPF, "CPF do Comprador"},
		{"data_nascimento", models.TypeDate, "Data de Nascimento"},
		{"rg_vendedor", models.TypeRG, "Rg Vendedor"},
		{"xyz_abc", models.TypeText, "Xyz Abc"},
		{"nome", models.TypeText, "Nome Completo"},
		{"email", models.TypeText, "E-mail"},
		{"data_cpf", models.TypeCPF, "Data Cpf"},
		{"orgao_emissor", models.TypeRG, "Órgão Emissor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.name)
			assert.Equal(t, tt.wantType, c.Type)
			assert.Equal(t, tt.wantDisplay, c.DisplayName)
			assert.True(t, c.Required)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for _, n := range []string{"cpf", "endereco_imovel", "valor_total"} {
		assert.Equal(t, Classify(n), Classify(n))
	}
}

func sequentialIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestDetect(t *testing.T) {
	vars := Detect("<p>{{nome}}, CPF [CPF], nascido em {{data_nascimento}}. {{Nome}}</p>", sequentialIDs())
	require.Len(t, vars, 3)

	assert.Equal(t, "id-1", vars[0].ID)
	assert.Equal(t, "nome", vars[0].Name)
	assert.Equal(t, "Nome Completo", vars[0].DisplayName)
	assert.Equal(t, models.TypeCPF, vars[1].Type)
	assert.Equal(t, models.TypeDate, vars[2].Type)
	for _, v := range vars {
		assert.Nil(t, v.Value)
		assert.Nil(t, v.Confidence)
		assert.True(t, v.Required)
	}
}

func TestDetect_DefaultIDsAreUnique(t *testing.T) {
	vars := Detect("{{a}} {{b}} {{c}}", nil)
	require.Len(t, vars, 3)
	seen := map[string]bool{}
	for _, v := range vars {
		assert.NotEmpty(t, v.ID)
		assert.False(t, seen[v.ID])
		seen[v.ID] = true
	}
}
