package billing

import (
	"testing"
	"time"
)

func TestComposeReportRequiresCompetence(t *testing.T) {
	if _, err := ComposeReport("", nil, nil, nil); err != ErrCompetenceRequired {
		t.Fatalf("expected ErrCompetenceRequired, got %v", err)
	}
}

func TestComposeReport(t *testing.T) {
	competences := testCompetences()
	units := testUnits()
	expenses := []Expense{
		{ID: "exp-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 100, DueDate: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)},
		{
			ID: "exp-2", UnitID: "unit-1", CompetenceID: "comp-2026-06", Type: ExpenseDistributor, Value: 50,
			DueDate:           time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC),
			DistributorDetail: &DistributorDetail{ReactiveValue: 12, DemandExcessValue: 30},
		},
		{ID: "exp-3", UnitID: "unit-2", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 40, DueDate: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)},
		{ID: "exp-4", UnitID: "unit-3", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 25, DueDate: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)},
		// Another competence: must not leak into the report.
		{ID: "exp-5", UnitID: "unit-1", CompetenceID: "comp-2026-07", Type: ExpenseRetailer, Value: 999, DueDate: time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)},
	}
	estimates := []Estimate{
		{ID: "est-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Value: 180},
	}

	groups, _ := GroupExpenses(expenses, competences, estimates)
	model, err := ComposeReport("comp-2026-06", units, competences, groups)
	if err != nil {
		t.Fatalf("compose report: %v", err)
	}

	if model.CompetenceLabel != "06/2026" {
		t.Fatalf("expected label 06/2026, got %s", model.CompetenceLabel)
	}
	if model.UnitCount != 3 {
		t.Fatalf("expected 3 units, got %d", model.UnitCount)
	}
	// The expense total spans the regulated unit too.
	if model.TotalExpense != 215 {
		t.Fatalf("expected total 215, got %f", model.TotalExpense)
	}
	// Savings come only from free units with a recorded estimate:
	// unit-1 contributes 180-150, unit-2 nothing.
	if model.TotalSavings != 30 {
		t.Fatalf("expected savings 30, got %f", model.TotalSavings)
	}

	if len(model.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(model.Rows))
	}
	if model.Rows[0].UnitName != "Fábrica Norte" || model.Rows[0].Real != 150 || model.Rows[0].Estimated != 180 || model.Rows[0].Savings != 30 {
		t.Fatalf("unexpected first row: %+v", model.Rows[0])
	}
	if model.Rows[1].UnitName != "Filial Sul" || model.Rows[1].Real != 40 || model.Rows[1].Savings != 0 {
		t.Fatalf("unexpected second row: %+v", model.Rows[1])
	}

	if len(model.Penalties) != 2 {
		t.Fatalf("expected 2 penalty items, got %d", len(model.Penalties))
	}
	if model.Penalties[0].Kind != "Multa de Demanda" || model.Penalties[0].Value != 30 || model.Penalties[0].UnitName != "Fábrica Norte" {
		t.Fatalf("unexpected demand penalty: %+v", model.Penalties[0])
	}
	if model.Penalties[1].Kind != "Multa de Reativo" || model.Penalties[1].Value != 12 {
		t.Fatalf("unexpected reactive penalty: %+v", model.Penalties[1])
	}
}

func TestComposeReportUnknownCompetenceLabel(t *testing.T) {
	groups := []Group{{Key: GroupKey{UnitID: "unit-1", CompetenceID: "comp-x"}, TotalReal: 10}}
	model, err := ComposeReport("comp-x", testUnits(), nil, groups)
	if err != nil {
		t.Fatalf("compose report: %v", err)
	}
	if model.CompetenceLabel != "comp-x" {
		t.Fatalf("expected identifier fallback label, got %s", model.CompetenceLabel)
	}
	if model.TotalExpense != 10 {
		t.Fatalf("expected total 10, got %f", model.TotalExpense)
	}
}

func TestComposeReportAgreesWithProjection(t *testing.T) {
	competences := testCompetences()
	units := testUnits()
	expenses := []Expense{
		{ID: "exp-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 100, DueDate: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)},
		{ID: "exp-2", UnitID: "unit-2", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 80, DueDate: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)},
	}
	estimates := []Estimate{
		{ID: "est-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Value: 130},
		{ID: "est-2", UnitID: "unit-2", CompetenceID: "comp-2026-06", Value: 0},
	}

	groups, _ := GroupExpenses(expenses, competences, estimates)
	projection := Project(groups, units, competences, "comp-2026-06")
	model, err := ComposeReport("comp-2026-06", units, competences, groups)
	if err != nil {
		t.Fatalf("compose report: %v", err)
	}

	if model.TotalExpense != projection.KPIs.TotalExpense {
		t.Fatalf("report total %f diverges from dashboard total %f", model.TotalExpense, projection.KPIs.TotalExpense)
	}
	if model.TotalSavings != projection.KPIs.Savings {
		t.Fatalf("report savings %f diverges from dashboard savings %f", model.TotalSavings, projection.KPIs.Savings)
	}
}
