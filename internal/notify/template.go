package notify

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"

	billing "gestor-energia/internal/billing/domain"
)

const DefaultTemplate = `Relatório de Custos - {{.Competence}}
Total de despesas: R$ {{.TotalExpense}}
Economia (mercado livre): R$ {{.TotalSavings}}
Unidades: {{.UnitCount}}
{{range .Rows}}
- {{.Unit}}: real R$ {{.Real}} | estimado R$ {{.Estimated}} | economia R$ {{.Savings}}
{{end}}
{{- if .Penalties}}
Multas:
{{range .Penalties}}- {{.Unit}}: {{.Kind}} R$ {{.Value}}
{{end}}
{{- end}}`

// RowData is one unit line preformatted for rendering.
type RowData struct {
	Unit      string
	Real      string
	Estimated string
	Savings   string
}

// PenaltyData is one penalty line preformatted for rendering.
type PenaltyData struct {
	Unit  string
	Kind  string
	Value string
}

// TemplateData provides fields for rendering the report body.
type TemplateData struct {
	Competence   string
	TotalExpense string
	TotalSavings string
	UnitCount    int
	Rows         []RowData
	Penalties    []PenaltyData
}

// Template renders report notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a report template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("report-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("report template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildTemplateData(model billing.ReportModel) TemplateData {
	data := TemplateData{
		Competence:   model.CompetenceLabel,
		TotalExpense: formatAmount(model.TotalExpense),
		TotalSavings: formatAmount(model.TotalSavings),
		UnitCount:    model.UnitCount,
	}
	for _, row := range model.Rows {
		data.Rows = append(data.Rows, RowData{
			Unit:      row.UnitName,
			Real:      formatAmount(row.Real),
			Estimated: formatAmount(row.Estimated),
			Savings:   formatAmount(row.Savings),
		})
	}
	for _, penalty := range model.Penalties {
		data.Penalties = append(data.Penalties, PenaltyData{
			Unit:  penalty.UnitName,
			Kind:  penalty.Kind,
			Value: formatAmount(penalty.Value),
		})
	}
	return data
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
