package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	billing "gestor-energia/internal/billing/domain"
	masterdata "gestor-energia/internal/masterdata/domain"
	"gestor-energia/internal/observability/metrics"
)

// ExpenseService handles expense CRUD use cases.
type ExpenseService struct {
	expenses    billing.ExpenseRepository
	competences billing.CompetenceRepository
	units       masterdata.UnitRepository
	clock       Clock
	logger      *log.Logger
}

// NewExpenseService constructs the service.
func NewExpenseService(
	expenses billing.ExpenseRepository,
	competences billing.CompetenceRepository,
	units masterdata.UnitRepository,
	clock Clock,
	logger *log.Logger,
) (*ExpenseService, error) {
	if expenses == nil {
		return nil, errors.New("expense service: nil expense repository")
	}
	if competences == nil {
		return nil, errors.New("expense service: nil competence repository")
	}
	if units == nil {
		return nil, errors.New("expense service: nil unit repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &ExpenseService{
		expenses:    expenses,
		competences: competences,
		units:       units,
		clock:       clock,
		logger:      logger,
	}, nil
}

// ListExpensesInput narrows an expense listing.
type ListExpensesInput struct {
	UnitID       string
	ContractID   string
	MarketType   string
	CompetenceID string
	Type         string
}

// List returns the expenses visible to the caller. Competence filtering
// follows the effective competence, so charge expenses appear under the
// competence their due month resolves to. Contract and market-type filters
// resolve to unit sets before the expense query runs.
func (s *ExpenseService) List(ctx context.Context, identity Identity, input ListExpensesInput) ([]billing.Expense, error) {
	if !identity.Active {
		return nil, ErrInactiveAccount
	}

	filter := billing.ExpenseFilter{}
	if input.UnitID != "" {
		if !identity.CanAccessUnit(input.UnitID) {
			return nil, ErrUnitAccessDenied
		}
		filter.UnitIDs = []string{input.UnitID}
	} else if input.ContractID != "" || input.MarketType != "" {
		unitFilter := masterdata.UnitFilter{ContractID: input.ContractID}
		if input.MarketType != "" {
			marketType, ok := masterdata.NormalizeMarketType(input.MarketType)
			if !ok {
				return nil, errors.New("expense service: invalid market type")
			}
			unitFilter.MarketType = marketType
		}
		units, err := s.units.List(ctx, unitFilter)
		if err != nil {
			return nil, err
		}
		scoped := ScopeUnits(identity, units)
		filter.UnitIDs = make([]string, 0, len(scoped))
		for _, unit := range scoped {
			filter.UnitIDs = append(filter.UnitIDs, unit.ID)
		}
		if len(filter.UnitIDs) == 0 {
			return []billing.Expense{}, nil
		}
	} else if !identity.Unrestricted() {
		filter.UnitIDs = identity.AccessibleUnitIDs
	}
	if input.Type != "" {
		expenseType, ok := billing.NormalizeExpenseType(input.Type)
		if !ok {
			return nil, billing.ErrInvalidExpenseType
		}
		filter.Type = expenseType
	}

	expenses, err := s.expenses.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if input.CompetenceID == "" {
		return expenses, nil
	}

	competences, err := s.competences.List(ctx)
	if err != nil {
		return nil, err
	}
	return billing.FilterByCompetence(expenses, competences, input.CompetenceID), nil
}

// Get returns one expense by id.
func (s *ExpenseService) Get(ctx context.Context, id string) (*billing.Expense, error) {
	expense, err := s.expenses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, billing.ErrExpenseNotFound
	}
	return expense, nil
}

// Create stores a new expense. Charge expenses are attributed to the
// competence matching their due month, creating it when missing; other
// types require a registered competence id.
func (s *ExpenseService) Create(ctx context.Context, input billing.Expense) (*billing.Expense, error) {
	expense, err := s.create(ctx, input)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncExpenseWrite("create", result)
	return expense, err
}

func (s *ExpenseService) create(ctx context.Context, input billing.Expense) (*billing.Expense, error) {
	expense := input
	expense.ID = uuid.NewString()

	if err := s.prepare(ctx, &expense); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	expense.CreatedAt = now
	expense.UpdatedAt = now
	if err := s.expenses.Create(ctx, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// Update replaces the mutable fields of an expense.
func (s *ExpenseService) Update(ctx context.Context, id string, input billing.Expense) (*billing.Expense, error) {
	expense, err := s.update(ctx, id, input)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncExpenseWrite("update", result)
	return expense, err
}

func (s *ExpenseService) update(ctx context.Context, id string, input billing.Expense) (*billing.Expense, error) {
	current, err := s.expenses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, billing.ErrExpenseNotFound
	}

	expense := input
	expense.ID = current.ID
	expense.CreatedAt = current.CreatedAt

	if err := s.prepare(ctx, &expense); err != nil {
		return nil, err
	}

	expense.UpdatedAt = s.clock.Now().UTC()
	if err := s.expenses.Update(ctx, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// Delete removes an expense.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	err := s.delete(ctx, id)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncExpenseWrite("delete", result)
	return err
}

func (s *ExpenseService) delete(ctx context.Context, id string) error {
	current, err := s.expenses.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return billing.ErrExpenseNotFound
	}
	return s.expenses.Delete(ctx, id)
}

// prepare normalizes and validates an expense before persisting it,
// resolving its stored competence.
func (s *ExpenseService) prepare(ctx context.Context, expense *billing.Expense) error {
	expenseType, ok := billing.NormalizeExpenseType(string(expense.Type))
	if !ok {
		return billing.ErrInvalidExpenseType
	}
	expense.Type = expenseType

	unit, err := s.units.Get(ctx, expense.UnitID)
	if err != nil {
		return err
	}
	if unit == nil {
		return ErrUnitNotFound
	}

	if expense.Type == billing.ExpenseCharge {
		competence, err := s.getOrCreateCompetence(ctx, expense.DueDate)
		if err != nil {
			return err
		}
		expense.CompetenceID = competence.ID
	} else {
		if expense.CompetenceID == "" {
			return billing.ErrCompetenceRequired
		}
		competence, err := s.competences.Get(ctx, expense.CompetenceID)
		if err != nil {
			return err
		}
		if competence == nil {
			return billing.ErrCompetenceNotFound
		}
	}

	return expense.Validate()
}

// getOrCreateCompetence returns the competence covering the due month,
// registering it on first use.
func (s *ExpenseService) getOrCreateCompetence(ctx context.Context, due time.Time) (*billing.Competence, error) {
	if due.IsZero() {
		return nil, billing.ErrInvalidDueDate
	}
	utc := due.UTC()
	year, month := utc.Year(), int(utc.Month())

	competence, err := s.competences.FindByMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if competence != nil {
		return competence, nil
	}

	created := billing.Competence{
		ID:        uuid.NewString(),
		Year:      year,
		Month:     month,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.competences.Create(ctx, &created); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Printf("expense: registered competence %s for %02d/%d", created.ID, month, year)
	}
	return &created, nil
}
