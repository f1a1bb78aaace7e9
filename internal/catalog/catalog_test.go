package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/placeholder"
)

func TestAll_Consistent(t *testing.T) {
	ts, err := All()
	require.NoError(t, err)
	require.Len(t, ts, 5)

	seen := map[string]bool{}
	for i, tpl := range ts {
		assert.False(t, seen[tpl.ID], "duplicate id %s", tpl.ID)
		seen[tpl.ID] = true
		assert.True(t, tpl.BuiltIn)
		assert.NotEmpty(t, tpl.Checksum)

		var names []string
		for _, v := range tpl.Variables {
			names = append(names, v.Name)
		}
		assert.Equal(t, placeholder.Scan(tpl.Content), names, tpl.ID)

		if i > 0 {
			assert.False(t, tpl.CreatedAt.After(ts[i-1].CreatedAt), "not newest first")
		}
	}
}

func TestAll_ReturnsCopies(t *testing.T) {
	a, err := All()
	require.NoError(t, err)
	a[0].Variables[0].DisplayName = "mutated"

	b, err := All()
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", b[0].Variables[0].DisplayName)
}

func TestGet_FieldOverrides(t *testing.T) {
	tpl, ok := Get("decl-residencia")
	require.True(t, ok)
	assert.Equal(t, models.CategoryDeclaracoes, tpl.Category)

	byName := map[string]models.Variable{}
	for _, v := range tpl.Variables {
		byName[v.Name] = v
	}
	assert.Equal(t, models.TypePhone, byName["telefone"].Type)
	assert.Equal(t, "Nome do Declarante", byName["nome_declarante"].DisplayName)
	assert.Equal(t, models.TypeCPF, byName["cpf"].Type)
	assert.Equal(t, "v1", tpl.Variables[0].ID)

	_, ok = Get("missing")
	assert.False(t, ok)
	assert.True(t, IsBuiltIn("req-segunda-via"))
}

func TestByCategory(t *testing.T) {
	ts, err := ByCategory(models.CategoryRequerimentos)
	require.NoError(t, err)
	require.Len(t, ts, 2)
	for _, tpl := range ts {
		assert.Equal(t, models.CategoryRequerimentos, tpl.Category)
	}

	ts, err = ByCategory(models.CategoryOutros)
	require.NoError(t, err)
	assert.Empty(t, ts)

	all, err := ByCategory("")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestFind(t *testing.T) {
	ts, err := Find("locacao")
	require.NoError(t, err)
	require.NotEmpty(t, ts)
	assert.Equal(t, "contrato-locacao-residencial", ts[0].ID)

	ts, err = Find("REQUERIMENTO")
	require.NoError(t, err)
	assert.Len(t, ts, 2)

	ts, err = Find("  ")
	require.NoError(t, err)
	assert.Empty(t, ts)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"bad category": "id: x\nname: X\ncategory: nope\ncreated: 2024-01-01\ncontent: a",
		"missing id":   "name: X\ncategory: outros\ncreated: 2024-01-01\ncontent: a",
		"bad date":     "id: x\nname: X\ncategory: outros\ncreated: ontem\ncontent: a",
		"bad type":     "id: x\nname: X\ncategory: outros\ncreated: 2024-01-01\nfields:\n  a: {type: color}\ncontent: '{{a}}'",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parse(fstest.MapFS{"templates/x.yaml": {Data: []byte(src)}})
			assert.Error(t, err)
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "procuracao ad judicia", Fold("Procuração Ad Judicia"))
}
