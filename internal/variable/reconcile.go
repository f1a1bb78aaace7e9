package variable

import (
	"strings"

	"github.com/starford/minuta/internal/models"
)

// Reconcile merges a freshly detected variable list into the previous one.
//
// Names present in both keep the previous id, value, confidence and source;
// labels, type and required always come from fresh. Names only in fresh are
// added empty, names only in prev are dropped. Output follows fresh order.
// Output ids are unique: a fresh id already taken by prev or by an earlier
// output entry is replaced with a new one.
func Reconcile(prev, fresh []models.Variable) []models.Variable {
	byName := make(map[string]models.Variable, len(prev))
	used := make(map[string]struct{}, len(prev)+len(fresh))
	for _, p := range prev {
		used[p.ID] = struct{}{}
		key := strings.ToLower(p.Name)
		if _, dup := byName[key]; !dup {
			byName[key] = p
		}
	}

	out := make([]models.Variable, 0, len(fresh))
	seen := make(map[string]struct{}, len(fresh))
	for _, f := range fresh {
		key := strings.ToLower(f.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if p, ok := byName[key]; ok {
			v := p.Clone()
			v.Name = f.Name
			v.DisplayName = f.DisplayName
			v.Type = f.Type
			v.Required = f.Required
			out = append(out, v)
			continue
		}

		v := models.Variable{
			ID:          f.ID,
			Name:        f.Name,
			DisplayName: f.DisplayName,
			Type:        f.Type,
			Required:    f.Required,
		}
		if _, taken := used[v.ID]; taken || v.ID == "" {
			v.ID = NewID()
		}
		used[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Rescan detects the variables of edited content and reconciles them
// against prev.
func Rescan(prev []models.Variable, content string) []models.Variable {
	return Reconcile(prev, Detect(content, nil))
}
