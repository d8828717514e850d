package billing

import (
	"testing"
	"time"
)

func TestGroupExpensesSumsPerUnitCompetence(t *testing.T) {
	competences := testCompetences()
	expenses := []Expense{
		{ID: "exp-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 100, DueDate: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "exp-2", UnitID: "unit-1", CompetenceID: "comp-2026-06", Type: ExpenseDistributor, Value: 40, DueDate: time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC)},
		{ID: "exp-3", UnitID: "unit-2", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 70, DueDate: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
	}

	groups, fallbacks := GroupExpenses(expenses, competences, nil)
	if fallbacks != 0 {
		t.Fatalf("expected no fallbacks, got %d", fallbacks)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Key.UnitID != "unit-1" || groups[0].TotalReal != 140 {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}
	if groups[1].Key.UnitID != "unit-2" || groups[1].TotalReal != 70 {
		t.Fatalf("unexpected second group: %+v", groups[1])
	}
	if len(groups[0].Expenses) != 2 {
		t.Fatalf("expected 2 expenses in first group, got %d", len(groups[0].Expenses))
	}
}

func TestGroupExpensesChargeJoinsResolvedCompetence(t *testing.T) {
	competences := testCompetences()
	expenses := []Expense{
		{ID: "exp-1", UnitID: "unit-1", CompetenceID: "comp-2026-07", Type: ExpenseRetailer, Value: 100, DueDate: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)},
		// Stored in June, due in July: must join the July group.
		chargeExpense("exp-2", "unit-1", "comp-2026-06", time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC), 25),
	}

	groups, fallbacks := GroupExpenses(expenses, competences, nil)
	if fallbacks != 0 {
		t.Fatalf("expected no fallbacks, got %d", fallbacks)
	}
	if len(groups) != 1 {
		t.Fatalf("expected a single July group, got %d groups", len(groups))
	}
	if groups[0].Key.CompetenceID != "comp-2026-07" || groups[0].TotalReal != 125 {
		t.Fatalf("unexpected group: %+v", groups[0])
	}
}

func TestGroupExpensesCountsFallbacks(t *testing.T) {
	competences := testCompetences()
	expenses := []Expense{
		chargeExpense("exp-1", "unit-1", "comp-2026-06", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 25),
		chargeExpense("exp-2", "unit-1", "comp-2026-06", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 10),
	}

	groups, fallbacks := GroupExpenses(expenses, competences, nil)
	if fallbacks != 2 {
		t.Fatalf("expected 2 fallbacks, got %d", fallbacks)
	}
	if len(groups) != 1 || groups[0].Key.CompetenceID != "comp-2026-06" || groups[0].TotalReal != 35 {
		t.Fatalf("expected both expenses under the stored competence, got %+v", groups)
	}
}

func TestGroupExpensesAttachesEstimates(t *testing.T) {
	competences := testCompetences()
	expenses := []Expense{
		{ID: "exp-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 100, DueDate: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "exp-2", UnitID: "unit-2", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 80, DueDate: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
	}
	estimates := []Estimate{
		{ID: "est-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Value: 120},
		{ID: "est-2", UnitID: "unit-2", CompetenceID: "comp-2026-06", Value: 0},
		{ID: "est-3", UnitID: "unit-9", CompetenceID: "comp-2026-06", Value: 999},
	}

	groups, _ := GroupExpenses(expenses, competences, estimates)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if !groups[0].HasEstimate() || groups[0].EstimateValue() != 120 {
		t.Fatalf("expected estimate 120 on first group, got %+v", groups[0])
	}
	// A recorded zero estimate is present, not absent.
	if !groups[1].HasEstimate() || groups[1].EstimateValue() != 0 {
		t.Fatalf("expected recorded zero estimate on second group, got %+v", groups[1])
	}
}

func TestGroupExpensesNoEstimate(t *testing.T) {
	competences := testCompetences()
	expenses := []Expense{
		{ID: "exp-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 100, DueDate: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
	}

	groups, _ := GroupExpenses(expenses, competences, nil)
	if groups[0].HasEstimate() {
		t.Fatalf("expected no estimate on group without a matching record")
	}
	if groups[0].EstimateValue() != 0 {
		t.Fatalf("expected zero estimate value, got %f", groups[0].EstimateValue())
	}
}

func TestGroupExpensesIdempotent(t *testing.T) {
	competences := testCompetences()
	expenses := []Expense{
		{ID: "exp-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Type: ExpenseRetailer, Value: 100, DueDate: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
		chargeExpense("exp-2", "unit-1", "comp-2026-06", time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC), 25),
	}
	estimates := []Estimate{{ID: "est-1", UnitID: "unit-1", CompetenceID: "comp-2026-06", Value: 150}}

	first, firstFallbacks := GroupExpenses(expenses, competences, estimates)
	second, secondFallbacks := GroupExpenses(expenses, competences, estimates)
	if len(first) != len(second) || firstFallbacks != secondFallbacks {
		t.Fatalf("expected identical grouping on repeated runs")
	}
	for i := range first {
		if first[i].Key != second[i].Key || first[i].TotalReal != second[i].TotalReal {
			t.Fatalf("group %d diverged between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGroupKeyIsStructural(t *testing.T) {
	competences := []Competence{
		{ID: "a-b", Year: 2026, Month: 6},
		{ID: "b", Year: 2026, Month: 7},
	}
	// Unit "a" with competence "a-b" and unit "a-a" with competence "b"
	// would collide under naive string concatenation with a dash.
	expenses := []Expense{
		{ID: "exp-1", UnitID: "a", CompetenceID: "a-b", Type: ExpenseRetailer, Value: 10, DueDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "exp-2", UnitID: "a-a", CompetenceID: "b", Type: ExpenseRetailer, Value: 20, DueDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
	}

	groups, _ := GroupExpenses(expenses, competences, nil)
	if len(groups) != 2 {
		t.Fatalf("expected 2 distinct groups, got %d", len(groups))
	}
	if groups[0].TotalReal != 10 || groups[1].TotalReal != 20 {
		t.Fatalf("expected totals 10 and 20, got %f and %f", groups[0].TotalReal, groups[1].TotalReal)
	}
}
