package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/minuta/internal/importer"
	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/placeholder"
	"github.com/starford/minuta/internal/variable"
)

type scanReport struct {
	File         string          `yaml:"file"`
	Size         string          `yaml:"size"`
	Name         string          `yaml:"name"`
	Category     models.Category `yaml:"category,omitempty"`
	Placeholders int             `yaml:"placeholders"`
	Variables    []scanVariable  `yaml:"variables"`
}

type scanVariable struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

func scan(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("scan: a template file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	report, err := buildReport(path, data)
	if err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	if cmd.Bool("yaml") {
		return writeYAML(os.Stdout, report)
	}
	writeTable(os.Stdout, report)
	return nil
}

func buildReport(path string, data []byte) (*scanReport, error) {
	imp, err := importer.Import(path, data)
	if err != nil {
		return nil, err
	}
	vars := variable.Detect(imp.Content, nil)
	report := &scanReport{
		File:         path,
		Size:         humanize.Bytes(uint64(len(data))),
		Name:         imp.Name,
		Category:     imp.Category,
		Placeholders: placeholder.Count(imp.Content),
		Variables:    make([]scanVariable, len(vars)),
	}
	for i, v := range vars {
		report.Variables[i] = scanVariable{
			Name:     v.Name,
			Label:    v.DisplayName,
			Type:     string(v.Type),
			Required: v.Required,
		}
	}
	return report, nil
}

func writeYAML(w io.Writer, r *scanReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

func writeTable(w io.Writer, r *scanReport) {
	fmt.Fprintf(w, "%s (%s): %q, %d placeholders\n", r.File, r.Size, r.Name, r.Placeholders)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Name", "Label", "Type", "Required"})
	table.SetAutoWrapText(false)
	for i, v := range r.Variables {
		table.Append([]string{
			strconv.Itoa(i + 1),
			v.Name,
			v.Label,
			v.Type,
			strconv.FormatBool(v.Required),
		})
	}
	table.Render()
}
