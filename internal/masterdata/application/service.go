package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	masterdata "gestor-energia/internal/masterdata/domain"
)

// Clock provides current time.
type Clock interface {
	Now() time.Time
}

// SystemClock returns wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ExpenseDeleter removes the expenses of a unit when the unit goes away.
type ExpenseDeleter interface {
	DeleteByUnit(ctx context.Context, unitID string) error
}

// Service manages units and contracts.
type Service struct {
	units     masterdata.UnitRepository
	contracts masterdata.ContractRepository
	expenses  ExpenseDeleter
	clock     Clock
	logger    *log.Logger
}

// NewService constructs the service.
func NewService(
	units masterdata.UnitRepository,
	contracts masterdata.ContractRepository,
	expenses ExpenseDeleter,
	clock Clock,
	logger *log.Logger,
) (*Service, error) {
	if units == nil {
		return nil, errors.New("masterdata service: nil unit repository")
	}
	if contracts == nil {
		return nil, errors.New("masterdata service: nil contract repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &Service{
		units:     units,
		contracts: contracts,
		expenses:  expenses,
		clock:     clock,
		logger:    logger,
	}, nil
}

// ListUnits returns units matching the filter.
func (s *Service) ListUnits(ctx context.Context, filter masterdata.UnitFilter) ([]masterdata.Unit, error) {
	return s.units.List(ctx, filter)
}

// GetUnit returns one unit by id.
func (s *Service) GetUnit(ctx context.Context, id string) (*masterdata.Unit, error) {
	unit, err := s.units.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, masterdata.ErrUnitNotFound
	}
	return unit, nil
}

// CreateUnit registers a new unit. Names are unique; the contract, when
// given, must exist.
func (s *Service) CreateUnit(ctx context.Context, input masterdata.Unit) (*masterdata.Unit, error) {
	unit := input
	unit.ID = uuid.NewString()

	if err := s.prepareUnit(ctx, &unit, ""); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	unit.CreatedAt = now
	unit.UpdatedAt = now
	if err := s.units.Create(ctx, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// UpdateUnit replaces the mutable fields of a unit. The market type is
// immutable once set.
func (s *Service) UpdateUnit(ctx context.Context, id string, input masterdata.Unit) (*masterdata.Unit, error) {
	current, err := s.units.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, masterdata.ErrUnitNotFound
	}

	unit := input
	unit.ID = current.ID
	unit.MarketType = current.MarketType
	unit.CreatedAt = current.CreatedAt

	if err := s.prepareUnit(ctx, &unit, current.Name); err != nil {
		return nil, err
	}

	unit.UpdatedAt = s.clock.Now().UTC()
	if err := s.units.Update(ctx, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// DeleteUnit removes a unit and every expense recorded against it.
func (s *Service) DeleteUnit(ctx context.Context, id string) error {
	unit, err := s.units.Get(ctx, id)
	if err != nil {
		return err
	}
	if unit == nil {
		return masterdata.ErrUnitNotFound
	}

	if s.expenses != nil {
		if err := s.expenses.DeleteByUnit(ctx, id); err != nil {
			return err
		}
	}
	if err := s.units.Delete(ctx, id); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Printf("masterdata: deleted unit %s and its expenses", id)
	}
	return nil
}

func (s *Service) prepareUnit(ctx context.Context, unit *masterdata.Unit, currentName string) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	if unit.Name != currentName {
		existing, err := s.units.GetByName(ctx, unit.Name)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != unit.ID {
			return masterdata.ErrUnitNameTaken
		}
	}
	if unit.ContractID != "" {
		contract, err := s.contracts.Get(ctx, unit.ContractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return masterdata.ErrContractNotFound
		}
	}
	return nil
}

// ListContracts returns every contract.
func (s *Service) ListContracts(ctx context.Context) ([]masterdata.Contract, error) {
	return s.contracts.List(ctx)
}

// GetContract returns one contract by id.
func (s *Service) GetContract(ctx context.Context, id string) (*masterdata.Contract, error) {
	contract, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, masterdata.ErrContractNotFound
	}
	return contract, nil
}

// CreateContract registers a new contract.
func (s *Service) CreateContract(ctx context.Context, input masterdata.Contract) (*masterdata.Contract, error) {
	contract := input
	contract.ID = uuid.NewString()
	if err := contract.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	contract.CreatedAt = now
	contract.UpdatedAt = now
	if err := s.contracts.Create(ctx, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

// UpdateContract replaces the mutable fields of a contract.
func (s *Service) UpdateContract(ctx context.Context, id string, input masterdata.Contract) (*masterdata.Contract, error) {
	current, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, masterdata.ErrContractNotFound
	}

	contract := input
	contract.ID = current.ID
	contract.CreatedAt = current.CreatedAt
	if err := contract.Validate(); err != nil {
		return nil, err
	}

	contract.UpdatedAt = s.clock.Now().UTC()
	if err := s.contracts.Update(ctx, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

// DeleteContract removes a contract, detaching any unit still under it.
// Units survive contract deletion; only the association is cleared.
func (s *Service) DeleteContract(ctx context.Context, id string) error {
	contract, err := s.contracts.Get(ctx, id)
	if err != nil {
		return err
	}
	if contract == nil {
		return masterdata.ErrContractNotFound
	}

	if err := s.units.DetachContract(ctx, id); err != nil {
		return err
	}
	return s.contracts.Delete(ctx, id)
}
