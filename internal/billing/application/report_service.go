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

// ReportSender delivers a composed report to recipients.
type ReportSender interface {
	SendReport(ctx context.Context, model billing.ReportModel, recipients []string) error
}

// ReportService composes and delivers the monthly cost report.
type ReportService struct {
	expenses    billing.ExpenseRepository
	competences billing.CompetenceRepository
	estimates   billing.EstimateRepository
	units       masterdata.UnitRepository
	sender      ReportSender
	logger      *log.Logger
}

// NewReportService constructs the service. The sender is optional; without
// one reports can be composed but not delivered.
func NewReportService(
	expenses billing.ExpenseRepository,
	competences billing.CompetenceRepository,
	estimates billing.EstimateRepository,
	units masterdata.UnitRepository,
	sender ReportSender,
	logger *log.Logger,
) (*ReportService, error) {
	if expenses == nil {
		return nil, errors.New("report service: nil expense repository")
	}
	if competences == nil {
		return nil, errors.New("report service: nil competence repository")
	}
	if estimates == nil {
		return nil, errors.New("report service: nil estimate repository")
	}
	if units == nil {
		return nil, errors.New("report service: nil unit repository")
	}

	return &ReportService{
		expenses:    expenses,
		competences: competences,
		estimates:   estimates,
		units:       units,
		sender:      sender,
		logger:      logger,
	}, nil
}

// Generate composes the report for one competence, scoped to the caller's
// units.
func (s *ReportService) Generate(ctx context.Context, identity Identity, competenceID string) (billing.ReportModel, error) {
	start := time.Now()
	model, err := s.generate(ctx, identity, competenceID)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveReportGenerate(result, time.Since(start))
	return model, err
}

func (s *ReportService) generate(ctx context.Context, identity Identity, competenceID string) (billing.ReportModel, error) {
	if !identity.Active {
		return billing.ReportModel{}, ErrInactiveAccount
	}
	if competenceID == "" {
		return billing.ReportModel{}, billing.ErrCompetenceRequired
	}

	competence, err := s.competences.Get(ctx, competenceID)
	if err != nil {
		return billing.ReportModel{}, err
	}
	if competence == nil {
		return billing.ReportModel{}, billing.ErrCompetenceNotFound
	}

	units, err := s.units.List(ctx, masterdata.UnitFilter{})
	if err != nil {
		return billing.ReportModel{}, err
	}
	scoped := ScopeUnits(identity, units)

	filter := billing.ExpenseFilter{}
	if !identity.Unrestricted() {
		filter.UnitIDs = identity.AccessibleUnitIDs
	}
	expenses, err := s.expenses.List(ctx, filter)
	if err != nil {
		return billing.ReportModel{}, err
	}
	competences, err := s.competences.List(ctx)
	if err != nil {
		return billing.ReportModel{}, err
	}
	estimates, err := s.estimates.List(ctx)
	if err != nil {
		return billing.ReportModel{}, err
	}

	groups, fallbacks := billing.GroupExpenses(expenses, competences, estimates)
	if fallbacks > 0 {
		metrics.AddCompetenceFallbacks(fallbacks)
	}

	return billing.ComposeReport(competenceID, scoped, competences, groups)
}

// Send composes the report and delivers it to the given recipients.
func (s *ReportService) Send(ctx context.Context, identity Identity, competenceID string, recipients []string) (billing.ReportModel, error) {
	if s.sender == nil {
		return billing.ReportModel{}, errors.New("report service: no sender configured")
	}

	model, err := s.Generate(ctx, identity, competenceID)
	if err != nil {
		return billing.ReportModel{}, err
	}

	if err := s.sender.SendReport(ctx, model, recipients); err != nil {
		metrics.IncReportSend(metrics.ResultError)
		return billing.ReportModel{}, err
	}
	metrics.IncReportSend(metrics.ResultSuccess)
	if s.logger != nil {
		s.logger.Printf("report: delivered %s to %d recipients", model.CompetenceLabel, len(recipients))
	}
	return model, nil
}
