package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/minuta/internal/models"
)

func TestMerge_CaseInsensitive(t *testing.T) {
	vars := []models.Variable{{ID: "1", Name: "cpf", Value: strPtr("")}}
	got := Merge(vars, []models.ExtractionResult{{Name: "CPF", Value: "123", Confidence: 0.9}}, PreserveManual)

	require.Len(t, got, 1)
	assert.Equal(t, "123", got[0].StringValue())
	assert.Equal(t, 0.9, *got[0].Confidence)
	assert.Equal(t, models.SourceAI, got[0].Source)
	// Input is left untouched.
	assert.Equal(t, "", vars[0].StringValue())
}

func TestMerge_NonMatches(t *testing.T) {
	vars := []models.Variable{{ID: "1", Name: "nome"}, {ID: "2", Name: "rg"}}
	got := Merge(vars, []models.ExtractionResult{
		{Name: "telefone", Value: "11 99999-0000", Confidence: 0.7},
		{Name: "rg", Value: "", Confidence: 0.9},
	}, PreserveManual)

	assert.Equal(t, vars, got)
}

func TestMerge_ClampsConfidence(t *testing.T) {
	vars := []models.Variable{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	got := Merge(vars, []models.ExtractionResult{
		{Name: "a", Value: "x", Confidence: 1.7},
		{Name: "b", Value: "y", Confidence: -2},
	}, OverwriteAll)
	assert.Equal(t, 1.0, *got[0].Confidence)
	assert.Equal(t, 0.0, *got[1].Confidence)
}

func TestMerge_ManualPolicy(t *testing.T) {
	vars, ok := Assign([]models.Variable{{ID: "1", Name: "nome"}}, "1", "Maria")
	require.True(t, ok)
	results := []models.ExtractionResult{{Name: "nome", Value: "MARIA S.", Confidence: 0.6}}

	kept := Merge(vars, results, PreserveManual)
	assert.Equal(t, "Maria", kept[0].StringValue())
	assert.Equal(t, models.SourceManual, kept[0].Source)

	overwritten := Merge(vars, results, OverwriteAll)
	assert.Equal(t, "MARIA S.", overwritten[0].StringValue())
	assert.Equal(t, models.SourceAI, overwritten[0].Source)
}

func TestMerge_WhitespaceNames(t *testing.T) {
	vars := []models.Variable{{ID: "1", Name: "nome_completo"}}
	got := Merge(vars, []models.ExtractionResult{{Name: "Nome Completo", Value: "Ana", Confidence: 0.5}}, PreserveManual)
	assert.Equal(t, "Ana", got[0].StringValue())
}

func TestAssign(t *testing.T) {
	vars := []models.Variable{{ID: "1", Name: "cpf", Source: models.SourceAI, Confidence: floatPtr(0.4)}}
	got, ok := Assign(vars, "1", "529.982.247-25")
	require.True(t, ok)
	assert.Equal(t, "529.982.247-25", got[0].StringValue())
	assert.Equal(t, 1.0, *got[0].Confidence)
	assert.Equal(t, models.SourceManual, got[0].Source)

	_, ok = Assign(vars, "missing", "x")
	assert.False(t, ok)
}
