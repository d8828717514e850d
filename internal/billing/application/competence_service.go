package application

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	billing "gestor-energia/internal/billing/domain"
)

// CompetenceService administers billing competences.
type CompetenceService struct {
	competences billing.CompetenceRepository
	expenses    billing.ExpenseRepository
	clock       Clock
	logger      *log.Logger
}

// NewCompetenceService constructs the service.
func NewCompetenceService(
	competences billing.CompetenceRepository,
	expenses billing.ExpenseRepository,
	clock Clock,
	logger *log.Logger,
) (*CompetenceService, error) {
	if competences == nil {
		return nil, errors.New("competence service: nil competence repository")
	}
	if expenses == nil {
		return nil, errors.New("competence service: nil expense repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &CompetenceService{
		competences: competences,
		expenses:    expenses,
		clock:       clock,
		logger:      logger,
	}, nil
}

// List returns every registered competence.
func (s *CompetenceService) List(ctx context.Context) ([]billing.Competence, error) {
	return s.competences.List(ctx)
}

// Create registers a new competence month. Each year and month pair exists
// at most once.
func (s *CompetenceService) Create(ctx context.Context, year, month int) (*billing.Competence, error) {
	competence := billing.Competence{
		ID:        uuid.NewString(),
		Year:      year,
		Month:     month,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := competence.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.competences.FindByMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, billing.ErrCompetenceExists
	}

	if err := s.competences.Create(ctx, &competence); err != nil {
		return nil, err
	}
	return &competence, nil
}

// Delete removes a competence. A competence that any expense resolves to,
// whether stored on it or attributed to it through its due month, cannot be
// deleted.
func (s *CompetenceService) Delete(ctx context.Context, id string) error {
	competence, err := s.competences.Get(ctx, id)
	if err != nil {
		return err
	}
	if competence == nil {
		return billing.ErrCompetenceNotFound
	}

	inUse, err := s.inUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return billing.ErrCompetenceInUse
	}

	return s.competences.Delete(ctx, id)
}

func (s *CompetenceService) inUse(ctx context.Context, id string) (bool, error) {
	count, err := s.expenses.CountByStoredCompetence(ctx, id)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	// Charge expenses stored elsewhere may still resolve here through their
	// due month.
	expenses, err := s.expenses.List(ctx, billing.ExpenseFilter{Type: billing.ExpenseCharge})
	if err != nil {
		return false, err
	}
	competences, err := s.competences.List(ctx)
	if err != nil {
		return false, err
	}
	for _, expense := range expenses {
		if effective, _ := billing.ResolveEffectiveCompetence(expense, competences); effective == id {
			return true, nil
		}
	}
	return false, nil
}
