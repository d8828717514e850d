package application

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	billing "gestor-energia/internal/billing/domain"
	masterdata "gestor-energia/internal/masterdata/domain"
)

// EstimateService manages per-unit, per-competence cost estimates.
type EstimateService struct {
	estimates   billing.EstimateRepository
	competences billing.CompetenceRepository
	units       masterdata.UnitRepository
	clock       Clock
	logger      *log.Logger
}

// NewEstimateService constructs the service.
func NewEstimateService(
	estimates billing.EstimateRepository,
	competences billing.CompetenceRepository,
	units masterdata.UnitRepository,
	clock Clock,
	logger *log.Logger,
) (*EstimateService, error) {
	if estimates == nil {
		return nil, errors.New("estimate service: nil estimate repository")
	}
	if competences == nil {
		return nil, errors.New("estimate service: nil competence repository")
	}
	if units == nil {
		return nil, errors.New("estimate service: nil unit repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &EstimateService{
		estimates:   estimates,
		competences: competences,
		units:       units,
		clock:       clock,
		logger:      logger,
	}, nil
}

// List returns estimates, optionally restricted to one competence.
func (s *EstimateService) List(ctx context.Context, competenceID string) ([]billing.Estimate, error) {
	if competenceID != "" {
		return s.estimates.ListByCompetence(ctx, competenceID)
	}
	return s.estimates.List(ctx)
}

// EstimateInput is one estimate value in a bulk save.
type EstimateInput struct {
	UnitID       string  `json:"unidadeId"`
	CompetenceID string  `json:"competenciaId"`
	Value        float64 `json:"valor"`
}

// Save upserts a batch of estimates. Saving again for the same unit and
// competence replaces the previous value; a zero is stored as a real
// estimate, not an absence.
func (s *EstimateService) Save(ctx context.Context, inputs []EstimateInput) ([]billing.Estimate, error) {
	if len(inputs) == 0 {
		return []billing.Estimate{}, nil
	}

	now := s.clock.Now().UTC()
	estimates := make([]billing.Estimate, 0, len(inputs))
	for _, input := range inputs {
		if input.UnitID == "" {
			return nil, billing.ErrEmptyUnitID
		}
		if input.CompetenceID == "" {
			return nil, billing.ErrCompetenceRequired
		}
		if input.Value < 0 {
			return nil, billing.ErrNegativeValue
		}

		unit, err := s.units.Get(ctx, input.UnitID)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, ErrUnitNotFound
		}
		competence, err := s.competences.Get(ctx, input.CompetenceID)
		if err != nil {
			return nil, err
		}
		if competence == nil {
			return nil, billing.ErrCompetenceNotFound
		}

		estimates = append(estimates, billing.Estimate{
			ID:           uuid.NewString(),
			UnitID:       input.UnitID,
			CompetenceID: input.CompetenceID,
			Value:        input.Value,
			UpdatedAt:    now,
		})
	}

	if err := s.estimates.Upsert(ctx, estimates); err != nil {
		return nil, err
	}
	return estimates, nil
}
