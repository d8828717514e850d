package application

import (
	"context"
	"errors"
	"log"
	"time"

	billing "gestor-energia/internal/billing/domain"
	masterdata "gestor-energia/internal/masterdata/domain"
	"gestor-energia/internal/observability/metrics"
)

// DashboardService computes the dashboard projection and per-unit drill-down
// views for one caller.
type DashboardService struct {
	expenses    billing.ExpenseRepository
	competences billing.CompetenceRepository
	estimates   billing.EstimateRepository
	units       masterdata.UnitRepository
	logger      *log.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(
	expenses billing.ExpenseRepository,
	competences billing.CompetenceRepository,
	estimates billing.EstimateRepository,
	units masterdata.UnitRepository,
	logger *log.Logger,
) (*DashboardService, error) {
	if expenses == nil {
		return nil, errors.New("dashboard service: nil expense repository")
	}
	if competences == nil {
		return nil, errors.New("dashboard service: nil competence repository")
	}
	if estimates == nil {
		return nil, errors.New("dashboard service: nil estimate repository")
	}
	if units == nil {
		return nil, errors.New("dashboard service: nil unit repository")
	}

	return &DashboardService{
		expenses:    expenses,
		competences: competences,
		estimates:   estimates,
		units:       units,
		logger:      logger,
	}, nil
}

// Compute builds the dashboard projection scoped to the caller's units,
// optionally filtered to one competence.
func (s *DashboardService) Compute(ctx context.Context, identity Identity, competenceID string) (billing.Projection, error) {
	start := time.Now()
	projection, err := s.compute(ctx, identity, competenceID)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveDashboard(result, time.Since(start))
	return projection, err
}

func (s *DashboardService) compute(ctx context.Context, identity Identity, competenceID string) (billing.Projection, error) {
	if !identity.Active {
		return billing.EmptyProjection(), ErrInactiveAccount
	}

	units, err := s.units.List(ctx, masterdata.UnitFilter{})
	if err != nil {
		return billing.EmptyProjection(), err
	}
	scoped := ScopeUnits(identity, units)

	var filterIDs []string
	if !identity.Unrestricted() {
		filterIDs = identity.AccessibleUnitIDs
	}
	groups, competences, err := s.loadGroups(ctx, filterIDs)
	if err != nil {
		return billing.EmptyProjection(), err
	}

	return billing.Project(groups, scoped, competences, competenceID), nil
}

// UnitDetail builds the drill-down view for one unit the caller may access.
func (s *DashboardService) UnitDetail(ctx context.Context, identity Identity, unitID string) (billing.UnitDetail, error) {
	if !identity.Active {
		return billing.UnitDetail{}, ErrInactiveAccount
	}
	if !identity.CanAccessUnit(unitID) {
		return billing.UnitDetail{}, ErrUnitAccessDenied
	}

	unit, err := s.units.Get(ctx, unitID)
	if err != nil {
		return billing.UnitDetail{}, err
	}
	if unit == nil {
		return billing.UnitDetail{}, ErrUnitNotFound
	}

	groups, competences, err := s.loadGroups(ctx, []string{unit.ID})
	if err != nil {
		return billing.UnitDetail{}, err
	}

	return billing.ComposeUnitDetail(*unit, competences, groups), nil
}

// loadGroups runs one grouping pass over the expenses of the given units.
// Effective-competence fallbacks are surfaced as a metric and a log line;
// they indicate charge expenses whose due month has no registered
// competence.
func (s *DashboardService) loadGroups(ctx context.Context, filterUnitIDs []string) ([]billing.Group, []billing.Competence, error) {
	expenses, err := s.expenses.List(ctx, billing.ExpenseFilter{UnitIDs: filterUnitIDs})
	if err != nil {
		return nil, nil, err
	}
	competences, err := s.competences.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	estimates, err := s.estimates.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	groups, fallbacks := billing.GroupExpenses(expenses, competences, estimates)
	if fallbacks > 0 {
		metrics.AddCompetenceFallbacks(fallbacks)
		if s.logger != nil {
			s.logger.Printf("dashboard: %d charge expenses kept on stored competence, no competence covers their due month", fallbacks)
		}
	}
	return groups, competences, nil
}
