package render

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/starford/minuta/internal/models"
)

const fieldsSheet = "Campos"

// FieldsWorkbook builds an XLSX summary of a filled document: one row per
// variable with its label, type, value, confidence and source.
func FieldsWorkbook(title string, vars []models.Variable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if idx, _ := f.GetSheetIndex(fieldsSheet); idx == -1 {
		if _, err := f.NewSheet(fieldsSheet); err != nil {
			return nil, err
		}
	}
	active, _ := f.GetSheetIndex(fieldsSheet)
	f.SetActiveSheet(active)

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(fieldsSheet, cell, v)
	}

	write(1, 1, title)
	headers := []string{"Campo", "Rótulo", "Tipo", "Valor", "Confiança", "Origem", "Obrigatório"}
	for i, h := range headers {
		write(i+1, 2, h)
	}

	for i, v := range vars {
		row := i + 3
		write(1, row, v.Name)
		write(2, row, v.DisplayName)
		write(3, row, string(v.Type))
		write(4, row, v.StringValue())
		if v.Confidence != nil {
			write(5, row, strconv.FormatFloat(*v.Confidence*100, 'f', 0, 64)+"%")
		}
		write(6, row, v.Source)
		if v.Required {
			write(7, row, "sim")
		} else {
			write(7, row, "não")
		}
	}

	_ = f.SetColWidth(fieldsSheet, "A", "A", 22)
	_ = f.SetColWidth(fieldsSheet, "B", "B", 28)
	_ = f.SetColWidth(fieldsSheet, "C", "C", 10)
	_ = f.SetColWidth(fieldsSheet, "D", "D", 48)
	_ = f.SetColWidth(fieldsSheet, "E", "G", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
