package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gestor-energia/internal/auth"
	"gestor-energia/internal/billing/application"
	billing "gestor-energia/internal/billing/domain"
	masterdata "gestor-energia/internal/masterdata/domain"
)

type fakeExpenseRepo struct {
	expenses map[string]billing.Expense
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{expenses: make(map[string]billing.Expense)}
}

func (f *fakeExpenseRepo) Get(_ context.Context, id string) (*billing.Expense, error) {
	if expense, ok := f.expenses[id]; ok {
		return &expense, nil
	}
	return nil, nil
}

func (f *fakeExpenseRepo) List(_ context.Context, filter billing.ExpenseFilter) ([]billing.Expense, error) {
	var result []billing.Expense
	for _, expense := range f.expenses {
		if len(filter.UnitIDs) > 0 && !containsString(filter.UnitIDs, expense.UnitID) {
			continue
		}
		if filter.CompetenceID != "" && expense.CompetenceID != filter.CompetenceID {
			continue
		}
		if filter.Type != "" && expense.Type != filter.Type {
			continue
		}
		result = append(result, expense)
	}
	return result, nil
}

func (f *fakeExpenseRepo) Create(_ context.Context, expense *billing.Expense) error {
	f.expenses[expense.ID] = *expense
	return nil
}

func (f *fakeExpenseRepo) Update(_ context.Context, expense *billing.Expense) error {
	f.expenses[expense.ID] = *expense
	return nil
}

func (f *fakeExpenseRepo) Delete(_ context.Context, id string) error {
	delete(f.expenses, id)
	return nil
}

func (f *fakeExpenseRepo) DeleteByUnit(_ context.Context, unitID string) error {
	for id, expense := range f.expenses {
		if expense.UnitID == unitID {
			delete(f.expenses, id)
		}
	}
	return nil
}

func (f *fakeExpenseRepo) CountByStoredCompetence(_ context.Context, competenceID string) (int, error) {
	count := 0
	for _, expense := range f.expenses {
		if expense.CompetenceID == competenceID {
			count++
		}
	}
	return count, nil
}

type fakeCompetenceRepo struct {
	competences map[string]billing.Competence
}

func newFakeCompetenceRepo() *fakeCompetenceRepo {
	return &fakeCompetenceRepo{competences: make(map[string]billing.Competence)}
}

func (f *fakeCompetenceRepo) Get(_ context.Context, id string) (*billing.Competence, error) {
	if competence, ok := f.competences[id]; ok {
		return &competence, nil
	}
	return nil, nil
}

func (f *fakeCompetenceRepo) FindByMonth(_ context.Context, year, month int) (*billing.Competence, error) {
	for _, competence := range f.competences {
		if competence.Year == year && competence.Month == month {
			return &competence, nil
		}
	}
	return nil, nil
}

func (f *fakeCompetenceRepo) List(_ context.Context) ([]billing.Competence, error) {
	var result []billing.Competence
	for _, competence := range f.competences {
		result = append(result, competence)
	}
	return result, nil
}

func (f *fakeCompetenceRepo) Create(_ context.Context, competence *billing.Competence) error {
	f.competences[competence.ID] = *competence
	return nil
}

func (f *fakeCompetenceRepo) Delete(_ context.Context, id string) error {
	delete(f.competences, id)
	return nil
}

type fakeEstimateRepo struct {
	estimates []billing.Estimate
}

func (f *fakeEstimateRepo) List(_ context.Context) ([]billing.Estimate, error) {
	return f.estimates, nil
}

func (f *fakeEstimateRepo) ListByCompetence(_ context.Context, competenceID string) ([]billing.Estimate, error) {
	var result []billing.Estimate
	for _, estimate := range f.estimates {
		if estimate.CompetenceID == competenceID {
			result = append(result, estimate)
		}
	}
	return result, nil
}

func (f *fakeEstimateRepo) Upsert(_ context.Context, estimates []billing.Estimate) error {
	f.estimates = append(f.estimates, estimates...)
	return nil
}

type fakeUnitRepo struct {
	units map[string]masterdata.Unit
}

func newFakeUnitRepo() *fakeUnitRepo {
	return &fakeUnitRepo{units: make(map[string]masterdata.Unit)}
}

func (f *fakeUnitRepo) Get(_ context.Context, id string) (*masterdata.Unit, error) {
	if unit, ok := f.units[id]; ok {
		return &unit, nil
	}
	return nil, nil
}

func (f *fakeUnitRepo) GetByName(_ context.Context, name string) (*masterdata.Unit, error) {
	for _, unit := range f.units {
		if unit.Name == name {
			return &unit, nil
		}
	}
	return nil, nil
}

func (f *fakeUnitRepo) List(_ context.Context, _ masterdata.UnitFilter) ([]masterdata.Unit, error) {
	var result []masterdata.Unit
	for _, unit := range f.units {
		result = append(result, unit)
	}
	return result, nil
}

func (f *fakeUnitRepo) Create(_ context.Context, unit *masterdata.Unit) error {
	f.units[unit.ID] = *unit
	return nil
}

func (f *fakeUnitRepo) Update(_ context.Context, unit *masterdata.Unit) error {
	f.units[unit.ID] = *unit
	return nil
}

func (f *fakeUnitRepo) Delete(_ context.Context, id string) error {
	delete(f.units, id)
	return nil
}

func (f *fakeUnitRepo) DetachContract(_ context.Context, contractID string) error {
	for id, unit := range f.units {
		if unit.ContractID == contractID {
			unit.ContractID = ""
			f.units[id] = unit
		}
	}
	return nil
}

type fakeIdentityProvider struct {
	identity application.Identity
}

func (f fakeIdentityProvider) Identity(_ context.Context, _ string) (application.Identity, error) {
	return f.identity, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func adminProvider() fakeIdentityProvider {
	return fakeIdentityProvider{identity: application.Identity{
		UserID: "admin-1",
		Name:   "Admin",
		Role:   auth.RoleAdmin,
		Active: true,
	}}
}

func withSubject(r *http.Request) *http.Request {
	ctx := auth.WithIdentity(r.Context(), "admin-1", auth.RoleAdmin, "Admin")
	return r.WithContext(ctx)
}

func expenseFixture(t *testing.T) (*ExpenseHandler, *fakeExpenseRepo, *fakeCompetenceRepo, *fakeUnitRepo) {
	t.Helper()
	expenses := newFakeExpenseRepo()
	competences := newFakeCompetenceRepo()
	units := newFakeUnitRepo()
	units.units["unit-1"] = masterdata.Unit{ID: "unit-1", Name: "Fábrica Norte", MarketType: masterdata.MarketFree}
	competences.competences["comp-1"] = billing.Competence{ID: "comp-1", Year: 2026, Month: 1}

	service, err := application.NewExpenseService(expenses, competences, units, nil, nil)
	if err != nil {
		t.Fatalf("new expense service: %v", err)
	}
	handler, err := NewExpenseHandler(service, adminProvider(), nil)
	if err != nil {
		t.Fatalf("new expense handler: %v", err)
	}
	return handler, expenses, competences, units
}

func TestExpenseHandlerCreateAndList(t *testing.T) {
	handler, _, _, _ := expenseFixture(t)

	body, _ := json.Marshal(map[string]any{
		"unidadeId":     "unit-1",
		"competenciaId": "comp-1",
		"tipoDespesa":   "comercializadora",
		"valor":         150.5,
		"vencimento":    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	req := withSubject(httptest.NewRequest(http.MethodPost, "/api/v1/despesas", bytes.NewReader(body)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created billing.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created expense: %v", err)
	}
	if created.ID == "" || created.Value != 150.5 {
		t.Fatalf("unexpected created expense: %+v", created)
	}

	req = withSubject(httptest.NewRequest(http.MethodGet, "/api/v1/despesas?unidadeId=unit-1", nil))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var listed []billing.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode expense list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected expense list: %+v", listed)
	}
}

func TestExpenseHandlerRejectsUnknownUnit(t *testing.T) {
	handler, _, _, _ := expenseFixture(t)

	body, _ := json.Marshal(map[string]any{
		"unidadeId":     "unit-missing",
		"competenciaId": "comp-1",
		"tipoDespesa":   "comercializadora",
		"valor":         10,
		"vencimento":    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	req := withSubject(httptest.NewRequest(http.MethodPost, "/api/v1/despesas", bytes.NewReader(body)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown unit, got %d", rec.Code)
	}
}

func TestExpenseHandlerScopesGet(t *testing.T) {
	handler, expenses, _, _ := expenseFixture(t)
	expenses.expenses["exp-1"] = billing.Expense{
		ID: "exp-1", UnitID: "unit-2", CompetenceID: "comp-1",
		Type: billing.ExpenseRetailer, Value: 80,
		DueDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	restricted := fakeIdentityProvider{identity: application.Identity{
		UserID: "user-1", Role: auth.RoleUser, Active: true,
		AccessibleUnitIDs: []string{"unit-1"},
	}}
	scoped, err := NewExpenseHandler(handler.service, restricted, nil)
	if err != nil {
		t.Fatalf("new expense handler: %v", err)
	}

	req := withSubject(httptest.NewRequest(http.MethodGet, "/api/v1/despesas/exp-1", nil))
	rec := httptest.NewRecorder()
	scoped.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for out-of-scope expense, got %d", rec.Code)
	}
}

func TestCompetenceHandlerCreateConflict(t *testing.T) {
	expenses := newFakeExpenseRepo()
	competences := newFakeCompetenceRepo()
	service, err := application.NewCompetenceService(competences, expenses, nil, nil)
	if err != nil {
		t.Fatalf("new competence service: %v", err)
	}
	handler, err := NewCompetenceHandler(service, nil)
	if err != nil {
		t.Fatalf("new competence handler: %v", err)
	}

	body, _ := json.Marshal(map[string]int{"ano": 2026, "mes": 3})
	req := withSubject(httptest.NewRequest(http.MethodPost, "/api/v1/competencias", bytes.NewReader(body)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = withSubject(httptest.NewRequest(http.MethodPost, "/api/v1/competencias", bytes.NewReader(body)))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate month, got %d", rec.Code)
	}
}

func TestDashboardHandlerComputesProjection(t *testing.T) {
	expenses := newFakeExpenseRepo()
	competences := newFakeCompetenceRepo()
	estimates := &fakeEstimateRepo{}
	units := newFakeUnitRepo()
	units.units["unit-1"] = masterdata.Unit{ID: "unit-1", Name: "Fábrica Norte", MarketType: masterdata.MarketFree}
	competences.competences["comp-1"] = billing.Competence{ID: "comp-1", Year: 2026, Month: 1}
	expenses.expenses["exp-1"] = billing.Expense{
		ID: "exp-1", UnitID: "unit-1", CompetenceID: "comp-1",
		Type: billing.ExpenseRetailer, Value: 100,
		DueDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	estimates.estimates = []billing.Estimate{{ID: "est-1", UnitID: "unit-1", CompetenceID: "comp-1", Value: 130}}

	service, err := application.NewDashboardService(expenses, competences, estimates, units, nil)
	if err != nil {
		t.Fatalf("new dashboard service: %v", err)
	}
	handler, err := NewDashboardHandler(service, adminProvider())
	if err != nil {
		t.Fatalf("new dashboard handler: %v", err)
	}

	req := withSubject(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var projection billing.Projection
	if err := json.Unmarshal(rec.Body.Bytes(), &projection); err != nil {
		t.Fatalf("decode projection: %v", err)
	}
	if projection.KPIs.TotalExpense != 100 {
		t.Fatalf("expected total 100, got %v", projection.KPIs.TotalExpense)
	}
	if projection.KPIs.Savings != 30 {
		t.Fatalf("expected savings 30, got %v", projection.KPIs.Savings)
	}
}

func TestReportExportPDF(t *testing.T) {
	data, err := BuildReportPDF(billing.ReportModel{
		CompetenceID:    "comp-1",
		CompetenceLabel: "01/2026",
		TotalExpense:    100,
		TotalSavings:    30,
		UnitCount:       1,
		Rows:            []billing.ReportRow{{UnitName: "Fábrica Norte", Real: 100, Estimated: 130, Savings: 30}},
	})
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if len(data) == 0 || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected pdf bytes, got %d bytes", len(data))
	}
}

func TestReportExportXLSX(t *testing.T) {
	data, err := BuildReportXLSX(billing.ReportModel{
		CompetenceID:    "comp-1",
		CompetenceLabel: "01/2026",
		TotalExpense:    100,
		UnitCount:       1,
		Rows:            []billing.ReportRow{{UnitName: "Fábrica Norte", Real: 100, Estimated: 130, Savings: 30}},
		Penalties:       []billing.PenaltyItem{{UnitName: "Fábrica Norte", Kind: "Multa de Demanda", Value: 12}},
	})
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	// XLSX files are zip archives.
	if len(data) < 4 || data[0] != 'P' || data[1] != 'K' {
		t.Fatalf("expected xlsx bytes, got %d bytes", len(data))
	}
}
