package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VariableType is the semantic type of a template variable.
type VariableType string

const (
	TypeText    VariableType = "text"
	TypeDate    VariableType = "date"
	TypeNumber  VariableType = "number"
	TypeCPF     VariableType = "cpf"
	TypeRG      VariableType = "rg"
	TypeAddress VariableType = "address"
	TypePhone   VariableType = "phone"
	TypeEmail   VariableType = "email"
)

// VariableTypes lists every valid type in display order.
var VariableTypes = []VariableType{
	TypeText, TypeDate, TypeNumber, TypeCPF, TypeRG, TypeAddress, TypePhone, TypeEmail,
}

// ParseVariableType maps a tag to its VariableType. Unknown tags are rejected.
func ParseVariableType(s string) (VariableType, error) {
	t := VariableType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeText, TypeDate, TypeNumber, TypeCPF, TypeRG, TypeAddress, TypePhone, TypeEmail:
		return t, nil
	}
	return "", fmt.Errorf("unknown variable type %q", s)
}

// UnmarshalJSON rejects tags outside the closed set.
func (t *VariableType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseVariableType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value provenance markers.
const (
	SourceAI     = "AI"
	SourceManual = "manual"
)

// Variable tracks one canonical placeholder of a template and its current value.
type Variable struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName"`
	Type        VariableType `json:"type"`
	Required    bool         `json:"required"`
	Value       *string      `json:"value,omitempty"`
	Confidence  *float64     `json:"confidence,omitempty"`
	Source      string       `json:"source,omitempty"`
}

// HasValue reports whether the variable carries a non-empty value.
func (v Variable) HasValue() bool {
	return v.Value != nil && *v.Value != ""
}

// StringValue returns the value or "" when unset.
func (v Variable) StringValue() string {
	if v.Value == nil {
		return ""
	}
	return *v.Value
}

// Clone returns a deep copy so callers never share value pointers.
func (v Variable) Clone() Variable {
	out := v
	if v.Value != nil {
		val := *v.Value
		out.Value = &val
	}
	if v.Confidence != nil {
		c := *v.Confidence
		out.Confidence = &c
	}
	return out
}

// CloneVariables deep-copies a variable list.
func CloneVariables(vars []Variable) []Variable {
	if vars == nil {
		return nil
	}
	out := make([]Variable, len(vars))
	for i, v := range vars {
		out[i] = v.Clone()
	}
	return out
}

// ExtractionResult is one field reported by the extraction collaborator.
type ExtractionResult struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}
