package variable

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/minuta/internal/models"
)

var (
	rgRe     = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.\-/ ]{3,18}[0-9A-Za-z]$`)
	numberRe = regexp.MustCompile(`^-?(\d{1,3}(\.\d{3})+|\d+)(,\d+)?$|^-?\d+\.\d+$`)
)

// dateLayout is the DD/MM/AAAA form used in Brazilian documents.
const dateLayout = "02/01/2006"

// ValidateValue checks a variable's value against its type. An empty value
// is always valid here; missing required values are reported by Check.
func ValidateValue(v models.Variable) error {
	if !v.HasValue() {
		return nil
	}
	value := strings.TrimSpace(v.StringValue())
	switch v.Type {
	case models.TypeCPF:
		return validation.Validate(value, validation.By(cpfRule))
	case models.TypeRG:
		return validation.Validate(value, validation.Match(rgRe).Error("RG inválido"))
	case models.TypeDate:
		return validation.Validate(value, validation.By(dateRule))
	case models.TypeNumber:
		return validation.Validate(value, validation.Match(numberRe).Error("número inválido"))
	case models.TypeEmail:
		return validation.Validate(value, is.EmailFormat.Error("e-mail inválido"))
	case models.TypePhone:
		return validation.Validate(value, validation.By(phoneRule))
	case models.TypeAddress, models.TypeText:
		return nil
	}
	return fmt.Errorf("unknown variable type %q", v.Type)
}

// Issue is a problem found on one variable before export.
type Issue struct {
	VariableID string `json:"variableId"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// Check reports required variables left empty and values that do not match
// their type, in variable order.
func Check(vars []models.Variable) []Issue {
	var out []Issue
	for _, v := range vars {
		if v.Required && !v.HasValue() {
			out = append(out, Issue{VariableID: v.ID, Name: v.Name, Message: "campo obrigatório"})
			continue
		}
		if err := ValidateValue(v); err != nil {
			out = append(out, Issue{VariableID: v.ID, Name: v.Name, Message: err.Error()})
		}
	}
	return out
}

// Progress counts variables holding a non-empty value.
func Progress(vars []models.Variable) (filled, total int) {
	for _, v := range vars {
		if v.HasValue() {
			filled++
		}
	}
	return filled, len(vars)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cpfRule(value any) error {
	s, _ := value.(string)
	d := digits(s)
	if len(d) != 11 || strings.Count(d, d[:1]) == 11 {
		return errors.New("CPF inválido")
	}
	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		check := sum * 10 % 11
		if check == 10 {
			check = 0
		}
		if check != int(d[n]-'0') {
			return errors.New("CPF inválido")
		}
	}
	return nil
}

func dateRule(value any) error {
	s, _ := value.(string)
	if _, err := time.Parse(dateLayout, s); err != nil {
		return errors.New("data inválida, use DD/MM/AAAA")
	}
	return nil
}

func phoneRule(value any) error {
	s, _ := value.(string)
	d := digits(s)
	if len(d) > 11 && strings.HasPrefix(d, "55") {
		d = d[2:]
	}
	if len(d) < 10 || len(d) > 11 {
		return errors.New("telefone inválido")
	}
	return nil
}
