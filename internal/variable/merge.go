package variable

import (
	"math"
	"strings"

	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/placeholder"
)

// MergePolicy decides whether extraction may overwrite manual edits.
type MergePolicy int

const (
	// PreserveManual leaves variables whose source is manual untouched.
	PreserveManual MergePolicy = iota
	// OverwriteAll lets the latest extraction result win.
	OverwriteAll
)

// Merge applies extraction results to vars by case-insensitive name match.
// Results with an empty value and results matching no variable are ignored.
// Matched variables get the value, the confidence clamped to [0,1] and
// source models.SourceAI.
func Merge(vars []models.Variable, results []models.ExtractionResult, policy MergePolicy) []models.Variable {
	byName := make(map[string]models.ExtractionResult, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Value) == "" {
			continue
		}
		key := placeholder.Canonical(r.Name)
		if _, dup := byName[key]; !dup {
			byName[key] = r
		}
	}

	out := models.CloneVariables(vars)
	for i := range out {
		v := &out[i]
		r, ok := byName[strings.ToLower(v.Name)]
		if !ok {
			continue
		}
		if policy == PreserveManual && v.Source == models.SourceManual {
			continue
		}
		value := r.Value
		conf := clamp01(r.Confidence)
		v.Value = &value
		v.Confidence = &conf
		v.Source = models.SourceAI
	}
	return out
}

// Assign records a manual edit of the variable with the given id: the value
// is set, confidence becomes 1 and the source becomes manual.
func Assign(vars []models.Variable, id, value string) ([]models.Variable, bool) {
	out := models.CloneVariables(vars)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		val := value
		conf := 1.0
		out[i].Value = &val
		out[i].Confidence = &conf
		out[i].Source = models.SourceManual
		return out, true
	}
	return out, false
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
