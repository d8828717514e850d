package interfaces

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	billing "gestor-energia/internal/billing/domain"
)

// BuildReportPDF renders a minimal PDF for a cost report.
func BuildReportPDF(model billing.ReportModel) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Relatorio de Custos")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Competencia: %s", model.CompetenceLabel))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Unidades: %d", model.UnitCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total de despesas (R$): %.2f", model.TotalExpense))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Economia mercado livre (R$): %.2f", model.TotalSavings))
	pdf.Ln(8)

	// Per-unit table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Unidade", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Real (R$)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Estimado (R$)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Economia (R$)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range model.Rows {
		pdf.CellFormat(70, 6, row.UnitName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", row.Real), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", row.Estimated), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", row.Savings), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(model.Penalties) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(70, 6, "Unidade", "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 6, "Multa", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Valor (R$)", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, penalty := range model.Penalties {
			pdf.CellFormat(70, 6, penalty.UnitName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(70, 6, penalty.Kind, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", penalty.Value), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a minimal XLSX for a cost report.
func BuildReportXLSX(model billing.ReportModel) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "resumo"
	unitsSheet := "unidades"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(unitsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Relatorio de Custos")
	_ = f.SetCellValue(summarySheet, "A3", "Competencia")
	_ = f.SetCellValue(summarySheet, "B3", model.CompetenceLabel)
	_ = f.SetCellValue(summarySheet, "A4", "Unidades")
	_ = f.SetCellValue(summarySheet, "B4", model.UnitCount)
	_ = f.SetCellValue(summarySheet, "A5", "Total de despesas (R$)")
	_ = f.SetCellValue(summarySheet, "B5", model.TotalExpense)
	_ = f.SetCellValue(summarySheet, "A6", "Economia mercado livre (R$)")
	_ = f.SetCellValue(summarySheet, "B6", model.TotalSavings)

	_ = f.SetCellValue(unitsSheet, "A1", "Unidade")
	_ = f.SetCellValue(unitsSheet, "B1", "Real (R$)")
	_ = f.SetCellValue(unitsSheet, "C1", "Estimado (R$)")
	_ = f.SetCellValue(unitsSheet, "D1", "Economia (R$)")
	for i, row := range model.Rows {
		line := i + 2
		_ = f.SetCellValue(unitsSheet, fmt.Sprintf("A%d", line), row.UnitName)
		_ = f.SetCellValue(unitsSheet, fmt.Sprintf("B%d", line), row.Real)
		_ = f.SetCellValue(unitsSheet, fmt.Sprintf("C%d", line), row.Estimated)
		_ = f.SetCellValue(unitsSheet, fmt.Sprintf("D%d", line), row.Savings)
	}

	if len(model.Penalties) > 0 {
		penaltiesSheet := "multas"
		f.NewSheet(penaltiesSheet)
		_ = f.SetCellValue(penaltiesSheet, "A1", "Unidade")
		_ = f.SetCellValue(penaltiesSheet, "B1", "Multa")
		_ = f.SetCellValue(penaltiesSheet, "C1", "Valor (R$)")
		for i, penalty := range model.Penalties {
			line := i + 2
			_ = f.SetCellValue(penaltiesSheet, fmt.Sprintf("A%d", line), penalty.UnitName)
			_ = f.SetCellValue(penaltiesSheet, fmt.Sprintf("B%d", line), penalty.Kind)
			_ = f.SetCellValue(penaltiesSheet, fmt.Sprintf("C%d", line), penalty.Value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
