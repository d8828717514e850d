package application

import (
	"context"
	"errors"
	"testing"
	"time"

	masterdata "gestor-energia/internal/masterdata/domain"
)

type memoryUnitRepo struct {
	units map[string]masterdata.Unit
}

func newMemoryUnitRepo() *memoryUnitRepo {
	return &memoryUnitRepo{units: make(map[string]masterdata.Unit)}
}

func (m *memoryUnitRepo) Get(_ context.Context, id string) (*masterdata.Unit, error) {
	if unit, ok := m.units[id]; ok {
		return &unit, nil
	}
	return nil, nil
}

func (m *memoryUnitRepo) GetByName(_ context.Context, name string) (*masterdata.Unit, error) {
	for _, unit := range m.units {
		if unit.Name == name {
			return &unit, nil
		}
	}
	return nil, nil
}

func (m *memoryUnitRepo) List(_ context.Context, filter masterdata.UnitFilter) ([]masterdata.Unit, error) {
	var result []masterdata.Unit
	for _, unit := range m.units {
		if filter.ContractID != "" && unit.ContractID != filter.ContractID {
			continue
		}
		if filter.MarketType != "" && unit.MarketType != filter.MarketType {
			continue
		}
		result = append(result, unit)
	}
	return result, nil
}

func (m *memoryUnitRepo) Create(_ context.Context, unit *masterdata.Unit) error {
	m.units[unit.ID] = *unit
	return nil
}

func (m *memoryUnitRepo) Update(_ context.Context, unit *masterdata.Unit) error {
	m.units[unit.ID] = *unit
	return nil
}

func (m *memoryUnitRepo) Delete(_ context.Context, id string) error {
	delete(m.units, id)
	return nil
}

func (m *memoryUnitRepo) DetachContract(_ context.Context, contractID string) error {
	for id, unit := range m.units {
		if unit.ContractID == contractID {
			unit.ContractID = ""
			m.units[id] = unit
		}
	}
	return nil
}

type memoryContractRepo struct {
	contracts map[string]masterdata.Contract
}

func newMemoryContractRepo() *memoryContractRepo {
	return &memoryContractRepo{contracts: make(map[string]masterdata.Contract)}
}

func (m *memoryContractRepo) Get(_ context.Context, id string) (*masterdata.Contract, error) {
	if contract, ok := m.contracts[id]; ok {
		return &contract, nil
	}
	return nil, nil
}

func (m *memoryContractRepo) List(_ context.Context) ([]masterdata.Contract, error) {
	var result []masterdata.Contract
	for _, contract := range m.contracts {
		result = append(result, contract)
	}
	return result, nil
}

func (m *memoryContractRepo) ListByIDs(_ context.Context, ids []string) ([]masterdata.Contract, error) {
	var result []masterdata.Contract
	for _, id := range ids {
		if contract, ok := m.contracts[id]; ok {
			result = append(result, contract)
		}
	}
	return result, nil
}

func (m *memoryContractRepo) Create(_ context.Context, contract *masterdata.Contract) error {
	m.contracts[contract.ID] = *contract
	return nil
}

func (m *memoryContractRepo) Update(_ context.Context, contract *masterdata.Contract) error {
	m.contracts[contract.ID] = *contract
	return nil
}

func (m *memoryContractRepo) Delete(_ context.Context, id string) error {
	delete(m.contracts, id)
	return nil
}

type recordingExpenseDeleter struct {
	deleted []string
}

func (r *recordingExpenseDeleter) DeleteByUnit(_ context.Context, unitID string) error {
	r.deleted = append(r.deleted, unitID)
	return nil
}

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

func newTestService(t *testing.T) (*Service, *memoryUnitRepo, *memoryContractRepo, *recordingExpenseDeleter) {
	t.Helper()
	units := newMemoryUnitRepo()
	contracts := newMemoryContractRepo()
	deleter := &recordingExpenseDeleter{}
	service, err := NewService(units, contracts, deleter, fixedClock{now: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, units, contracts, deleter
}

func TestCreateUnitRejectsDuplicateName(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateUnit(ctx, masterdata.Unit{Name: "Fábrica Norte", MarketType: masterdata.MarketFree})
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}
	_, err = service.CreateUnit(ctx, masterdata.Unit{Name: "Fábrica Norte", MarketType: masterdata.MarketRegulated})
	if !errors.Is(err, masterdata.ErrUnitNameTaken) {
		t.Fatalf("expected name taken error, got %v", err)
	}
}

func TestCreateUnitRequiresExistingContract(t *testing.T) {
	service, _, contracts, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateUnit(ctx, masterdata.Unit{Name: "Filial Sul", MarketType: masterdata.MarketFree, ContractID: "missing"})
	if !errors.Is(err, masterdata.ErrContractNotFound) {
		t.Fatalf("expected contract not found, got %v", err)
	}

	contracts.contracts["contract-1"] = masterdata.Contract{ID: "contract-1", Name: "Comercializadora A"}
	unit, err := service.CreateUnit(ctx, masterdata.Unit{Name: "Filial Sul", MarketType: masterdata.MarketFree, ContractID: "contract-1"})
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}
	if unit.ContractID != "contract-1" {
		t.Fatalf("expected contract association, got %q", unit.ContractID)
	}
}

func TestUpdateUnitKeepsMarketType(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateUnit(ctx, masterdata.Unit{Name: "Escritório", MarketType: masterdata.MarketRegulated})
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}

	updated, err := service.UpdateUnit(ctx, created.ID, masterdata.Unit{Name: "Escritório Central", MarketType: masterdata.MarketFree})
	if err != nil {
		t.Fatalf("update unit: %v", err)
	}
	if updated.Name != "Escritório Central" {
		t.Fatalf("expected renamed unit, got %q", updated.Name)
	}
	if updated.MarketType != masterdata.MarketRegulated {
		t.Fatalf("market type must be immutable, got %q", updated.MarketType)
	}
}

func TestDeleteUnitCascadesExpenses(t *testing.T) {
	service, units, _, deleter := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateUnit(ctx, masterdata.Unit{Name: "Fábrica Norte", MarketType: masterdata.MarketFree})
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}

	if err := service.DeleteUnit(ctx, created.ID); err != nil {
		t.Fatalf("delete unit: %v", err)
	}
	if len(deleter.deleted) != 1 || deleter.deleted[0] != created.ID {
		t.Fatalf("expected expense cascade for %s, got %v", created.ID, deleter.deleted)
	}
	if _, ok := units.units[created.ID]; ok {
		t.Fatal("expected unit removed")
	}

	if err := service.DeleteUnit(ctx, created.ID); !errors.Is(err, masterdata.ErrUnitNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteContractDetachesUnits(t *testing.T) {
	service, units, contracts, _ := newTestService(t)
	ctx := context.Background()

	contracts.contracts["contract-1"] = masterdata.Contract{ID: "contract-1", Name: "Comercializadora A"}
	unit, err := service.CreateUnit(ctx, masterdata.Unit{Name: "Filial Sul", MarketType: masterdata.MarketFree, ContractID: "contract-1"})
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}

	if err := service.DeleteContract(ctx, "contract-1"); err != nil {
		t.Fatalf("delete contract: %v", err)
	}
	if _, ok := contracts.contracts["contract-1"]; ok {
		t.Fatal("expected contract removed")
	}
	if got := units.units[unit.ID].ContractID; got != "" {
		t.Fatalf("expected unit detached, still has contract %q", got)
	}
}
